package service

import (
	"bitwise74/filehub/internal/model"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MessageListLimit = 100
	UnknownUsername  = "Unknown user"
)

// ChatPipeline stores chat messages and schedules the bot's answers
type ChatPipeline struct {
	db    *gorm.DB
	sched ReplyScheduler
	gate  *PrivilegeGate

	// Delay returns how long the bot "thinks" before answering
	Delay func() time.Duration
	// Intn picks the fallback reply, nil means math/rand
	Intn func(n int) int
	now  func() time.Time
}

// NewChatPipeline returns a pipeline whose replies are delayed uniformly
// between minDelay and maxDelay.
func NewChatPipeline(db *gorm.DB, sched ReplyScheduler, gate *PrivilegeGate, minDelay, maxDelay time.Duration) *ChatPipeline {
	return &ChatPipeline{
		db:    db,
		sched: sched,
		gate:  gate,
		Delay: UniformDelay(minDelay, maxDelay),
		now:   time.Now,
	}
}

func UniformDelay(minDelay, maxDelay time.Duration) func() time.Duration {
	return func() time.Duration {
		if maxDelay <= minDelay {
			return minDelay
		}

		return minDelay + rand.N(maxDelay-minDelay+1)
	}
}

// PostMessage persists a human message and schedules an automated reply. A
// failure to schedule is logged, the message is kept.
func (c *ChatPipeline) PostMessage(ctx context.Context, p *Principal, text string) (*model.ChatMessage, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message can't be empty", ErrInvalidArgument)
	}

	msg := &model.ChatMessage{
		UserID:  p.ID,
		Message: text,
	}

	if err := c.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to save message, %w", ErrDependency, err)
	}

	messagesPostedTotal.Inc()
	msg.Username = p.Username

	task := &ReplyTask{
		UserID:    p.ID,
		MessageID: msg.ID,
		Text:      text,
		RunAt:     c.now().Add(c.Delay()),
	}

	if err := c.sched.Enqueue(context.WithoutCancel(ctx), task); err != nil {
		repliesTotal.WithLabelValues("dropped").Inc()
		zap.L().Warn("Failed to schedule automated reply", zap.Uint("message_id", msg.ID), zap.Error(err))
	}

	return msg, nil
}

// DeliverReply is the ReplyHandler for the scheduler. The reply is chosen
// when the task runs and attributed to the user who posted the original.
func (c *ChatPipeline) DeliverReply(ctx context.Context, t *ReplyTask) error {
	msg := &model.ChatMessage{
		UserID:  t.UserID,
		Message: SelectReply(t.Text, c.Intn),
		IsAI:    true,
	}

	if err := c.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to insert automated reply, %w", err)
	}

	return nil
}

// ListMessages returns the newest messages oldest first
func (c *ChatPipeline) ListMessages(ctx context.Context) ([]model.ChatMessage, error) {
	msgs := []model.ChatMessage{}

	err := c.db.
		WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(MessageListLimit).
		Find(&msgs).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list messages, %w", ErrDependency, err)
	}

	slices.Reverse(msgs)

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.UserID)
	}

	names, err := usernames(ctx, c.db, ids)
	if err != nil {
		return nil, err
	}

	for i := range msgs {
		name, ok := names[msgs[i].UserID]
		if !ok {
			name = UnknownUsername
		}
		msgs[i].Username = name
	}

	return msgs, nil
}

// DeleteMessage removes a message. Only its author or a current admin may
// do that.
func (c *ChatPipeline) DeleteMessage(ctx context.Context, p *Principal, messageID uint) error {
	if p == nil {
		return ErrUnauthenticated
	}

	var msg model.ChatMessage

	err := c.db.
		WithContext(ctx).
		Select("id", "user_id").
		Where("id = ?", messageID).
		Take(&msg).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: message not found", ErrNotFound)
		}

		return fmt.Errorf("%w: failed to fetch message, %w", ErrDependency, err)
	}

	if msg.UserID != p.ID {
		isAdmin, err := c.gate.IsAdmin(ctx, p.ID)
		if err != nil {
			return err
		}

		if !isAdmin {
			return fmt.Errorf("%w: you can only delete your own messages", ErrForbidden)
		}
	}

	err = c.db.
		WithContext(ctx).
		Where("id = ?", msg.ID).
		Delete(&model.ChatMessage{}).
		Error
	if err != nil {
		return fmt.Errorf("%w: failed to delete message, %w", ErrDependency, err)
	}

	return nil
}
