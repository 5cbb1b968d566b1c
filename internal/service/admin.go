package service

import (
	"bitwise74/filehub/internal/model"
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlobListLimit bounds the storage listing used for the storage total
const BlobListLimit = 1000

type Stats struct {
	Users        int64 `json:"users"`
	Files        int64 `json:"files"`
	Messages     int64 `json:"messages"`
	StorageUsed  int64 `json:"storageUsed"`  // MB
	ServerUptime int64 `json:"serverUptime"` // seconds
}

type AdminAggregator struct {
	db        *gorm.DB
	blob      storage.Blob
	gate      *PrivilegeGate
	startedAt time.Time
	now       func() time.Time
}

func NewAdminAggregator(db *gorm.DB, blob storage.Blob, gate *PrivilegeGate, startedAt time.Time) *AdminAggregator {
	return &AdminAggregator{
		db:        db,
		blob:      blob,
		gate:      gate,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Stats computes every counter fresh. The four lookups run concurrently and
// the first failure cancels the rest.
func (a *AdminAggregator) Stats(ctx context.Context, p *Principal) (*Stats, error) {
	if err := a.gate.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}

	var (
		st    Stats
		bytes int64
	)

	count := func(m any, dst *int64) func(context.Context) error {
		return func(ctx context.Context) error {
			return a.db.WithContext(ctx).Model(m).Count(dst).Error
		}
	}

	pl := pool.New().WithContext(ctx).WithCancelOnError()
	pl.Go(count(model.User{}, &st.Users))
	pl.Go(count(model.File{}, &st.Files))
	pl.Go(count(model.ChatMessage{}, &st.Messages))
	pl.Go(func(ctx context.Context) error {
		objs, err := a.blob.List(ctx, "", BlobListLimit)
		if err != nil {
			return err
		}

		for _, o := range objs {
			bytes += o.Size
		}
		return nil
	})

	if err := pl.Wait(); err != nil {
		return nil, fmt.Errorf("%w: failed to compute stats, %w", ErrDependency, err)
	}

	st.StorageUsed = int64(math.Round(float64(bytes) / 1024 / 1024))
	st.ServerUptime = int64(a.now().Sub(a.startedAt).Seconds())

	return &st, nil
}

// ListUsers returns every user, newest first
func (a *AdminAggregator) ListUsers(ctx context.Context, p *Principal) ([]model.User, error) {
	if err := a.gate.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}

	users := []model.User{}

	err := a.db.
		WithContext(ctx).
		Order("created_at desc").
		Find(&users).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users, %w", ErrDependency, err)
	}

	return users, nil
}

// SetAdmin changes a user's admin flag. Admins can't demote themselves.
func (a *AdminAggregator) SetAdmin(ctx context.Context, p *Principal, userID string, isAdmin bool) (*model.User, error) {
	if err := a.gate.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}

	if userID == p.ID && !isAdmin {
		return nil, fmt.Errorf("%w: you can't remove your own admin privileges", ErrInvalidArgument)
	}

	res := a.db.
		WithContext(ctx).
		Model(model.User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: failed to update user, %w", ErrDependency, res.Error)
	}

	var user model.User

	err := a.db.
		WithContext(ctx).
		Where("id = ?", userID).
		Take(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}

		return nil, fmt.Errorf("%w: failed to fetch user, %w", ErrDependency, err)
	}

	return &user, nil
}

// DeleteUser removes a user along with their files and chat messages. The rows
// go in one transaction, blobs are only removed once it commits and that part
// is best effort.
func (a *AdminAggregator) DeleteUser(ctx context.Context, p *Principal, userID string) error {
	if err := a.gate.RequireAdmin(ctx, p); err != nil {
		return err
	}

	if userID == p.ID {
		return fmt.Errorf("%w: you can't delete your own account", ErrInvalidArgument)
	}

	var exists int64

	err := a.db.
		WithContext(ctx).
		Model(model.User{}).
		Where("id = ?", userID).
		Count(&exists).
		Error
	if err != nil {
		return fmt.Errorf("%w: failed to fetch user, %w", ErrDependency, err)
	}

	if exists == 0 {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}

	var keys []string

	err = a.db.
		WithContext(ctx).
		Model(model.File{}).
		Where("uploaded_by = ?", userID).
		Pluck("storage_name", &keys).
		Error
	if err != nil {
		return fmt.Errorf("%w: failed to list user files, %w", ErrDependency, err)
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}

		if err := tx.Where("uploaded_by = ?", userID).Delete(&model.File{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", userID).Delete(&model.User{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete user, %w", ErrDependency, err)
	}

	// Rows are gone, leftovers are picked up by the Reclaimer
	for _, k := range keys {
		if err := a.blob.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			zap.L().Error("Failed to delete blob of deleted user", zap.String("key", k), zap.Error(err))
		}
	}

	return nil
}
