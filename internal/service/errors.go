package service

import "errors"

// Error taxonomy shared by every operation. Operations wrap these with
// context using fmt.Errorf and callers test for them with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrDependency      = errors.New("dependency failure")
)
