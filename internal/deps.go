package internal

import (
	"bitwise74/filehub/internal/service"
	"bitwise74/filehub/internal/storage"
	"bitwise74/filehub/pkg/security"
	"time"

	"gorm.io/gorm"
)

type Limits struct {
	MaxUploadSize int64 // bytes per file
	MaxFiles      int
}

type Options struct {
	JWTSecret     string
	JWTTTL        time.Duration
	ReplyMinDelay time.Duration
	ReplyMaxDelay time.Duration
	AdminEmails   []string
	Limits        Limits
	// Unreferenced blobs younger than this are not reclaimed
	ReclaimMinAge time.Duration
}

// Deps is everything handlers need. Build it with NewDeps.
type Deps struct {
	DB        *gorm.DB
	Argon     *security.ArgonHash
	Blob      storage.Blob
	Scheduler service.ReplyScheduler
	Verifier  *service.Verifier
	Gate      *service.PrivilegeGate
	Files     *service.FileStore
	Chat      *service.ChatPipeline
	Admin     *service.AdminAggregator
	Reclaimer *service.Reclaimer
	Events    *service.EventLog

	AdminEmails []string
	Limits      Limits
	StartedAt   time.Time
}

// NewDeps wires the services together. The scheduler isn't started here, call
// Scheduler.Start(Chat.DeliverReply) once the process is ready.
func NewDeps(db *gorm.DB, blob storage.Blob, sched service.ReplyScheduler, opt Options) *Deps {
	startedAt := time.Now()
	gate := service.NewPrivilegeGate(db)
	events := service.NewEventLog(200)

	return &Deps{
		DB:          db,
		Argon:       security.New(),
		Blob:        blob,
		Scheduler:   sched,
		Verifier:    service.NewVerifier(opt.JWTSecret, opt.JWTTTL),
		Gate:        gate,
		Files:       service.NewFileStore(db, blob, gate),
		Chat:        service.NewChatPipeline(db, sched, gate, opt.ReplyMinDelay, opt.ReplyMaxDelay),
		Admin:       service.NewAdminAggregator(db, blob, gate, startedAt),
		Reclaimer:   service.NewReclaimer(db, blob, events, opt.ReclaimMinAge),
		Events:      events,
		AdminEmails: opt.AdminEmails,
		Limits:      opt.Limits,
		StartedAt:   startedAt,
	}
}
