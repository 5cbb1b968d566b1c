package validators

import "errors"

var (
	ErrUsernameEmpty   = errors.New("no username provided")
	ErrUsernameLength  = errors.New("username must be between 3 and 32 characters long")
	ErrUsernameInvalid = errors.New("username can only contain letters, digits, underscores and dashes")
)

func UsernameValidator(u string) error {
	if u == "" {
		return ErrUsernameEmpty
	}

	if len(u) < 3 || len(u) > 32 {
		return ErrUsernameLength
	}

	for _, r := range u {
		ok := r >= 'a' && r <= 'z' ||
			r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' ||
			r == '_' || r == '-'
		if !ok {
			return ErrUsernameInvalid
		}
	}

	return nil
}
