package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskTypeChatReply = "chat:reply"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// AsynqScheduler defers replies through Redis so they survive a restart of
// the API process.
type AsynqScheduler struct {
	client *asynq.Client
	server *asynq.Server
}

var _ ReplyScheduler = (*AsynqScheduler)(nil)

func NewAsynqScheduler(opt RedisOptions, concurrency int) *AsynqScheduler {
	redis := asynq.RedisClientOpt{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	}

	return &AsynqScheduler{
		client: asynq.NewClient(redis),
		server: asynq.NewServer(redis, asynq.Config{
			Concurrency: concurrency,
			Logger:      zap.S(),
		}),
	}
}

func (s *AsynqScheduler) Start(h ReplyHandler) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeChatReply, func(ctx context.Context, t *asynq.Task) error {
		var task ReplyTask
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			// Malformed payloads will never succeed
			return fmt.Errorf("failed to decode reply task, %w: %w", err, asynq.SkipRetry)
		}

		if err := h(ctx, &task); err != nil {
			repliesTotal.WithLabelValues("failed").Inc()
			zap.L().Error("Automated reply failed", zap.String("user_id", task.UserID), zap.Error(err))
			return err
		}

		repliesTotal.WithLabelValues("delivered").Inc()
		return nil
	})

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start reply workers, %w", err)
	}

	return nil
}

func (s *AsynqScheduler) Enqueue(ctx context.Context, t *ReplyTask) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode reply task, %w", err)
	}

	_, err = s.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeChatReply, payload),
		asynq.ProcessIn(time.Until(t.RunAt)),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue reply task, %w", err)
	}

	return nil
}

func (s *AsynqScheduler) Shutdown() {
	s.server.Shutdown()

	if err := s.client.Close(); err != nil {
		zap.L().Warn("Failed to close asynq client", zap.Error(err))
	}
}
