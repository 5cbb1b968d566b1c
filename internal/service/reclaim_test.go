package service

import (
	"bitwise74/filehub/internal/model"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReclaimerRun(t *testing.T) {
	conn := newTestDB(t)
	blob := newFlakyBlob()
	ctx := context.Background()

	for _, k := range []string{"u1/kept", "u1/orphan", "u2/orphan"} {
		require.NoError(t, blob.Memory.Put(ctx, k, strings.NewReader("x"), 1, ""))
	}
	require.NoError(t, conn.Create(&model.File{OriginalName: "kept", StorageName: "u1/kept", UploadedBy: "u1", IsPublic: true}).Error)

	events := NewEventLog(8)
	r := NewReclaimer(conn, blob, events, time.Hour)
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := blob.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "u1/kept", left[0].Key)

	n, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReclaimerListFailure(t *testing.T) {
	blob := newFlakyBlob()
	blob.failList = true

	_, err := NewReclaimer(newTestDB(t), blob, nil, 0).Run(context.Background())
	assert.Error(t, err)
}

func TestReclaimerSchedule(t *testing.T) {
	r := NewReclaimer(newTestDB(t), newFlakyBlob(), nil, 0)

	c, err := r.Schedule("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = r.Schedule("not a schedule")
	assert.Error(t, err)

	c, err = r.Schedule("@every 1h")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	c.Stop()
}

func TestReclaimerSkipsFreshBlobs(t *testing.T) {
	conn := newTestDB(t)
	blob := newFlakyBlob()
	ctx := context.Background()

	require.NoError(t, blob.Memory.Put(ctx, "u1/fresh", strings.NewReader("x"), 1, ""))

	r := NewReclaimer(conn, blob, nil, time.Hour)

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok := blob.Get("u1/fresh")
	assert.True(t, ok)

	r.now = func() time.Time { return time.Now().Add(61 * time.Minute) }

	n, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReclaimerDuringUpload(t *testing.T) {
	conn := newTestDB(t)
	blob := newFlakyBlob()
	ctx := context.Background()
	owner := seedUser(t, conn, "u1", false)

	r := NewReclaimer(conn, blob, nil, time.Hour)

	// A pass lands between the blob write and the row insert
	blob.afterPut = func(string) {
		_, err := r.Run(ctx)
		assert.NoError(t, err)
	}

	res, err := NewFileStore(conn, blob, NewPrivilegeGate(conn)).Upload(ctx, owner.ID, []UploadFile{textFile("a.txt", "hello")})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	b, ok := blob.Get(res.Files[0].StorageName)
	require.True(t, ok)
	assert.Equal(t, "hello", string(b))
}

func TestReclaimerCoversWholeStore(t *testing.T) {
	conn := newTestDB(t)
	blob := newFlakyBlob()
	ctx := context.Background()

	const total = BlobListLimit + reclaimBatch
	for i := range total {
		require.NoError(t, blob.Memory.Put(ctx, fmt.Sprintf("u1/%05d", i), strings.NewReader("x"), 1, ""))
	}

	keep := fmt.Sprintf("u1/%05d", total-1)
	require.NoError(t, conn.Create(&model.File{OriginalName: "last", StorageName: keep, UploadedBy: "u1", IsPublic: true}).Error)

	r := NewReclaimer(conn, blob, nil, time.Hour)
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, total-1, n)

	left, err := blob.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep, left[0].Key)
}
