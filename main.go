package main

import (
	"bitwise74/filehub/app"
	a "bitwise74/filehub/aws"
	"bitwise74/filehub/cloudflare"
	"bitwise74/filehub/config"
	"bitwise74/filehub/db"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/internal/service"
	"bitwise74/filehub/internal/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)

func main() {
	makeLogger()
	defer zap.L().Sync()

	err := config.Setup()
	if err != nil {
		if errors.Is(err, config.ErrNoSecret) {
			os.Exit(0)
		}
		panic(err)
	}

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		logLevel.SetLevel(lvl)
	}

	if viper.GetString("app.mode") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := db.New()
	if err != nil {
		panic(err)
	}

	blob, err := newBlob(ctx)
	if err != nil {
		panic(err)
	}

	sched := newScheduler()

	d := internal.NewDeps(conn, blob, sched, internal.Options{
		JWTSecret:     viper.GetString("jwt.secret"),
		JWTTTL:        viper.GetDuration("jwt.ttl"),
		ReplyMinDelay: viper.GetDuration("chat.reply_min_delay"),
		ReplyMaxDelay: viper.GetDuration("chat.reply_max_delay"),
		AdminEmails:   viper.GetStringSlice("auth.admin_emails"),
		ReclaimMinAge: viper.GetDuration("reclaim.min_age"),
		Limits: internal.Limits{
			MaxUploadSize: viper.GetInt64("upload.max_size"),
			MaxFiles:      viper.GetInt("upload.max_files"),
		},
	})

	d.Events.Add(service.LevelInfo, "Database connected ("+viper.GetString("database.driver")+")")
	d.Events.Add(service.LevelInfo, "Storage ready ("+viper.GetString("storage.type")+")")

	if err := sched.Start(d.Chat.DeliverReply); err != nil {
		panic(err)
	}

	reclaim, err := d.Reclaimer.Schedule(viper.GetString("reclaim.schedule"))
	if err != nil {
		panic(err)
	}

	router, closeRouter := app.NewRouter(d)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("host.port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))
		d.Events.Add(service.LevelInfo, "Server started on "+srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed to shut down server gracefully", zap.Error(err))
	}

	if reclaim != nil {
		<-reclaim.Stop().Done()
	}

	sched.Shutdown()
	closeRouter()
}

func newBlob(ctx context.Context) (storage.Blob, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		s3, err := a.NewS3(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
		return s3, nil
	case "r2":
		r2, err := cloudflare.NewR2(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client, %w", err)
		}
		return r2, nil
	default:
		zap.L().Warn("Using in-memory blob storage, files are lost on restart")
		return storage.NewMemory(), nil
	}
}

func newScheduler() service.ReplyScheduler {
	workers := viper.GetInt("chat.workers")

	if viper.GetString("chat.scheduler") == "redis" {
		return service.NewAsynqScheduler(service.RedisOptions{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		}, workers)
	}

	return service.NewTaskQueue(workers, viper.GetInt("chat.queue_size"))
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = logLevel
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
