package service

import (
	"bitwise74/filehub/internal/model"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PrivilegeGate re-reads the administrator flag from the store on every call.
// It never mutates state and never caches.
type PrivilegeGate struct {
	db *gorm.DB
}

func NewPrivilegeGate(db *gorm.DB) *PrivilegeGate {
	return &PrivilegeGate{db: db}
}

// IsAdmin reports the current stored flag. A subject that no longer exists is
// not an admin.
func (g *PrivilegeGate) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool

	err := g.db.
		WithContext(ctx).
		Model(model.User{}).
		Where("id = ?", userID).
		Select("is_admin").
		Take(&isAdmin).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%w: failed to read privilege, %w", ErrDependency, err)
	}

	return isAdmin, nil
}

// RequireAdmin fails with ErrForbidden unless the principal is currently an admin
func (g *PrivilegeGate) RequireAdmin(ctx context.Context, p *Principal) error {
	if p == nil {
		return ErrUnauthenticated
	}

	ok, err := g.IsAdmin(ctx, p.ID)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}

	return nil
}
