package service

import (
	"bitwise74/filehub/db"
	"bitwise74/filehub/internal/model"
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())

	conn, err := db.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, id string, admin bool) *model.User {
	t.Helper()

	u := &model.User{
		ID:           id,
		Username:     id + "_name",
		Email:        id + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, conn.Create(u).Error)

	return u
}

func principal(u *model.User) *Principal {
	return &Principal{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

func textFile(name, body string) UploadFile {
	return UploadFile{
		Name:        name,
		Size:        int64(len(body)),
		ContentType: "text/plain",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

// flakyBlob fails selected calls of the wrapped memory store
type flakyBlob struct {
	*storage.Memory

	mu         sync.Mutex
	puts       int
	failPuts   map[int]bool // by call index, starting at 0
	failDelete bool
	failList   bool
	failSign   bool
	afterPut   func(key string)
}

func newFlakyBlob() *flakyBlob {
	return &flakyBlob{Memory: storage.NewMemory(), failPuts: map[int]bool{}}
}

func (f *flakyBlob) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	i := f.puts
	f.puts++
	fail := f.failPuts[i]
	f.mu.Unlock()

	if fail {
		return errInjected
	}

	if err := f.Memory.Put(ctx, key, body, size, contentType); err != nil {
		return err
	}

	if f.afterPut != nil {
		f.afterPut(key)
	}
	return nil
}

func (f *flakyBlob) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errInjected
	}

	return f.Memory.Delete(ctx, key)
}

func (f *flakyBlob) List(ctx context.Context, prefix string, limit int) ([]storage.Object, error) {
	if f.failList {
		return nil, errInjected
	}

	return f.Memory.List(ctx, prefix, limit)
}

func (f *flakyBlob) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.failSign {
		return "", errInjected
	}

	return f.Memory.SignURL(ctx, key, ttl)
}

// recordingScheduler keeps tasks instead of running them
type recordingScheduler struct {
	mu    sync.Mutex
	tasks []*ReplyTask
	err   error
}

func (r *recordingScheduler) Start(ReplyHandler) error { return nil }

func (r *recordingScheduler) Enqueue(_ context.Context, t *ReplyTask) error {
	if r.err != nil {
		return r.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, t)
	return nil
}

func (r *recordingScheduler) Shutdown() {}
