package service

import (
	"bitwise74/filehub/internal/model"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(t *testing.T, sched ReplyScheduler) *ChatPipeline {
	t.Helper()

	conn := newTestDB(t)
	return NewChatPipeline(conn, sched, NewPrivilegeGate(conn), time.Second, 3*time.Second)
}

func TestPostMessageRejectsEmpty(t *testing.T) {
	sched := &recordingScheduler{}
	c := newTestChat(t, sched)
	u := seedUser(t, c.db, "u1", false)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := c.PostMessage(context.Background(), principal(u), text)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}

	var n int64
	require.NoError(t, c.db.Model(model.ChatMessage{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, sched.tasks)
}

func TestPostMessageSchedulesReply(t *testing.T) {
	sched := &recordingScheduler{}
	c := newTestChat(t, sched)
	u := seedUser(t, c.db, "u1", false)

	now := time.UnixMilli(1_700_000_000_000)
	c.now = func() time.Time { return now }

	msg, err := c.PostMessage(context.Background(), principal(u), "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Message)
	assert.False(t, msg.IsAI)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "u1_name", msg.Username)

	require.Len(t, sched.tasks, 1)
	task := sched.tasks[0]
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, msg.ID, task.MessageID)
	assert.Equal(t, "hello there", task.Text)

	delay := task.RunAt.Sub(now)
	assert.GreaterOrEqual(t, delay, time.Second)
	assert.LessOrEqual(t, delay, 3*time.Second)
}

func TestPostMessageSurvivesSchedulerFailure(t *testing.T) {
	c := newTestChat(t, &recordingScheduler{err: ErrQueueFull})
	u := seedUser(t, c.db, "u1", false)

	_, err := c.PostMessage(context.Background(), principal(u), "hi")
	require.NoError(t, err)

	var n int64
	require.NoError(t, c.db.Model(model.ChatMessage{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUniformDelay(t *testing.T) {
	d := UniformDelay(time.Second, 3*time.Second)
	for range 200 {
		v := d()
		assert.GreaterOrEqual(t, v, time.Second)
		assert.LessOrEqual(t, v, 3*time.Second)
	}

	assert.Equal(t, 2*time.Second, UniformDelay(2*time.Second, time.Second)())
}

func TestDeliverReply(t *testing.T) {
	c := newTestChat(t, &recordingScheduler{})
	u := seedUser(t, c.db, "u1", false)

	require.NoError(t, c.DeliverReply(context.Background(), &ReplyTask{UserID: u.ID, Text: "Hello!"}))

	var msg model.ChatMessage
	require.NoError(t, c.db.Take(&msg).Error)
	assert.True(t, msg.IsAI)
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, SelectReply("hello", nil), msg.Message)
}

func TestReplyArrivesThroughQueue(t *testing.T) {
	q := NewTaskQueue(2, 16)
	c := newTestChat(t, q)
	c.Delay = func() time.Duration { return 20 * time.Millisecond }
	require.NoError(t, q.Start(c.DeliverReply))
	t.Cleanup(q.Shutdown)

	u := seedUser(t, c.db, "u1", false)

	_, err := c.PostMessage(context.Background(), principal(u), "hello")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs, err := c.ListMessages(context.Background())
		return err == nil && len(msgs) == 2
	}, 3*time.Second, 10*time.Millisecond)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.False(t, msgs[0].IsAI)
	assert.True(t, msgs[1].IsAI)
	assert.Equal(t, "u1", msgs[1].UserID)
	assert.Equal(t, replyRules[len(replyRules)-1].reply, msgs[1].Message)
}

func TestListMessagesOrderAndLimit(t *testing.T) {
	c := newTestChat(t, &recordingScheduler{})
	seedUser(t, c.db, "u1", false)

	// Inserted newest first
	for i := 104; i >= 0; i-- {
		require.NoError(t, c.db.Create(&model.ChatMessage{
			UserID:    "u1",
			Message:   fmt.Sprintf("m%d", i),
			CreatedAt: int64(10_000 + i),
		}).Error)
	}

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, MessageListLimit)

	assert.Equal(t, "m5", msgs[0].Message)
	assert.Equal(t, "m104", msgs[len(msgs)-1].Message)

	for i := 1; i < len(msgs); i++ {
		assert.Less(t, msgs[i-1].CreatedAt, msgs[i].CreatedAt)
	}
}

func TestListMessagesUnknownAuthor(t *testing.T) {
	c := newTestChat(t, &recordingScheduler{})
	seedUser(t, c.db, "u1", false)

	require.NoError(t, c.db.Create(&model.ChatMessage{UserID: "u1", Message: "a", CreatedAt: 1}).Error)
	require.NoError(t, c.db.Create(&model.ChatMessage{UserID: "gone", Message: "b", CreatedAt: 2}).Error)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "u1_name", msgs[0].Username)
	assert.Equal(t, UnknownUsername, msgs[1].Username)
}

func TestDeleteMessage(t *testing.T) {
	c := newTestChat(t, &recordingScheduler{})
	ctx := context.Background()

	author := seedUser(t, c.db, "author", false)
	other := seedUser(t, c.db, "other", false)
	admin := seedUser(t, c.db, "admin", true)

	post := func() uint {
		m, err := c.PostMessage(ctx, principal(author), "some text")
		require.NoError(t, err)
		return m.ID
	}

	id := post()
	assert.ErrorIs(t, c.DeleteMessage(ctx, principal(other), id), ErrForbidden)

	// A stale admin claim doesn't help
	forged := principal(other)
	forged.IsAdmin = true
	assert.ErrorIs(t, c.DeleteMessage(ctx, forged, id), ErrForbidden)

	assert.NoError(t, c.DeleteMessage(ctx, principal(author), id))
	assert.ErrorIs(t, c.DeleteMessage(ctx, principal(author), id), ErrNotFound)

	id = post()
	assert.NoError(t, c.DeleteMessage(ctx, principal(admin), id))

	assert.ErrorIs(t, c.DeleteMessage(ctx, nil, id), ErrUnauthenticated)
}
