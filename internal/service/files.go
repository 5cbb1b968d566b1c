package service

import (
	"bitwise74/filehub/internal/model"
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PublicListLimit   = 50
	DownloadURLExpiry = time.Hour

	maxExtLength = 16
)

// UploadFile is one part of a batch upload. Size and count limits are enforced
// before it gets here.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type UploadResult struct {
	Files   []model.File
	Dropped int
}

type Download struct {
	URL      string
	FileName string
}

// FileStore owns the binding between blobs and File rows. Nothing else writes
// File rows.
type FileStore struct {
	db   *gorm.DB
	blob storage.Blob
	gate *PrivilegeGate
}

func NewFileStore(db *gorm.DB, blob storage.Blob, gate *PrivilegeGate) *FileStore {
	return &FileStore{
		db:   db,
		blob: blob,
		gate: gate,
	}
}

// StorageKey builds the blob key for an upload: {owner}/{uuid}.{ext}. Names
// without a usable extension get no suffix.
func StorageKey(ownerID, name string) string {
	key := ownerID + "/" + uuid.NewString()

	if ext := cleanExt(name); ext != "" {
		key += "." + ext
	}

	return key
}

func cleanExt(name string) string {
	ext := strings.TrimPrefix(path.Ext(path.Base(strings.ReplaceAll(name, "\\", "/"))), ".")
	if ext == "" || len(ext) > maxExtLength {
		return ""
	}

	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}

	return strings.ToLower(ext)
}

// Upload stores each file independently, blob first then metadata. Failed files
// are skipped; the call only fails when nothing was stored.
func (s *FileStore) Upload(ctx context.Context, ownerID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrInvalidArgument)
	}

	res := &UploadResult{}

	for _, f := range files {
		ent, err := s.uploadOne(ctx, ownerID, f)
		if err != nil {
			res.Dropped++
			uploadsDroppedTotal.Inc()

			zap.L().Error("Failed to upload file, skipping",
				zap.String("owner", ownerID),
				zap.String("name", f.Name),
				zap.Error(err))
			continue
		}

		filesUploadedTotal.Inc()
		res.Files = append(res.Files, *ent)
	}

	if len(res.Files) == 0 {
		return nil, fmt.Errorf("%w: all file uploads failed", ErrDependency)
	}

	names, err := usernames(ctx, s.db, []string{ownerID})
	if err != nil {
		zap.L().Warn("Failed to look up uploader name", zap.Error(err))
	}
	for i := range res.Files {
		res.Files[i].Uploader = names[ownerID]
	}

	return res, nil
}

func (s *FileStore) uploadOne(ctx context.Context, ownerID string, f UploadFile) (*model.File, error) {
	if f.Open == nil {
		return nil, errors.New("no content provided")
	}

	key := StorageKey(ownerID, f.Name)

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload, %w", err)
	}
	defer rc.Close()

	if err := s.blob.Put(ctx, key, rc, f.Size, f.ContentType); err != nil {
		return nil, fmt.Errorf("failed to write blob, %w", err)
	}

	ent := &model.File{
		OriginalName: f.Name,
		StorageName:  key,
		FileSize:     f.Size,
		MimeType:     f.ContentType,
		UploadedBy:   ownerID,
		IsPublic:     true,
	}

	if err := s.db.WithContext(ctx).Create(ent).Error; err != nil {
		// Don't leave a blob nobody references
		if derr := s.blob.Delete(context.WithoutCancel(ctx), key); derr != nil {
			zap.L().Warn("Failed to clean up blob after metadata insert failed", zap.String("key", key), zap.Error(derr))
		}

		return nil, fmt.Errorf("failed to insert file row, %w", err)
	}

	return ent, nil
}

// ListPublic returns the newest public files
func (s *FileStore) ListPublic(ctx context.Context) ([]model.File, error) {
	files := []model.File{}

	err := s.db.
		WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at desc").
		Order("id desc").
		Limit(PublicListLimit).
		Find(&files).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list files, %w", ErrDependency, err)
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.UploadedBy)
	}

	names, err := usernames(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	for i := range files {
		files[i].Uploader = names[files[i].UploadedBy]
	}

	return files, nil
}

// IssueDownload hands out a signed URL. Private files are only available to
// their owner and to current admins.
func (s *FileStore) IssueDownload(ctx context.Context, p *Principal, fileID uint) (*Download, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}

	var file model.File

	err := s.db.
		WithContext(ctx).
		Where("id = ?", fileID).
		Take(&file).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file not found", ErrNotFound)
		}

		return nil, fmt.Errorf("%w: failed to fetch file, %w", ErrDependency, err)
	}

	if !file.IsPublic && file.UploadedBy != p.ID {
		isAdmin, err := s.gate.IsAdmin(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		if !isAdmin {
			return nil, fmt.Errorf("%w: access denied", ErrForbidden)
		}
	}

	url, err := s.blob.SignURL(ctx, file.StorageName, DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate download URL, %w", ErrDependency, err)
	}

	err = s.db.
		WithContext(ctx).
		Model(model.File{}).
		Where("id = ?", file.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).
		Error
	if err != nil {
		zap.L().Error("Failed to increment download count", zap.Uint("file_id", file.ID), zap.Error(err))
	}

	downloadsIssuedTotal.Inc()

	return &Download{
		URL:      url,
		FileName: file.OriginalName,
	}, nil
}

// Delete removes the blob then the row. A failed blob removal is logged but
// doesn't stop the row from being deleted, so the row is always gone when the
// returned error is nil. Orphaned blobs are picked up by the Reclaimer.
func (s *FileStore) Delete(ctx context.Context, p *Principal, fileID uint) error {
	if err := s.gate.RequireAdmin(ctx, p); err != nil {
		return err
	}

	var file model.File

	err := s.db.
		WithContext(ctx).
		Select("id", "storage_name").
		Where("id = ?", fileID).
		Take(&file).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: file not found", ErrNotFound)
		}

		return fmt.Errorf("%w: failed to fetch file, %w", ErrDependency, err)
	}

	if err := s.blob.Delete(ctx, file.StorageName); err != nil {
		zap.L().Error("Failed to delete blob, removing metadata anyway",
			zap.String("key", file.StorageName),
			zap.Error(err))
	}

	err = s.db.
		WithContext(ctx).
		Where("id = ?", file.ID).
		Delete(&model.File{}).
		Error
	if err != nil {
		return fmt.Errorf("%w: failed to delete file row, %w", ErrDependency, err)
	}

	return nil
}

// usernames maps user ids to display names. Missing users are absent from
// the map.
func usernames(ctx context.Context, db *gorm.DB, ids []string) (map[string]string, error) {
	out := map[string]string{}
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		ID       string
		Username string
	}

	err := db.
		WithContext(ctx).
		Model(model.User{}).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&rows).
		Error
	if err != nil {
		return out, fmt.Errorf("%w: failed to look up users, %w", ErrDependency, err)
	}

	for _, r := range rows {
		out[r.ID] = r.Username
	}

	return out, nil
}
