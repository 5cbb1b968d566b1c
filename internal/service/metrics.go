package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filehub_files_uploaded_total",
		Help: "Files stored with both blob and metadata.",
	})
	uploadsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filehub_uploads_dropped_total",
		Help: "Files skipped in a batch upload because the blob or metadata write failed.",
	})
	downloadsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filehub_download_links_issued_total",
		Help: "Signed download URLs handed out.",
	})
	messagesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filehub_chat_messages_posted_total",
		Help: "Human chat messages persisted.",
	})
	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filehub_chat_replies_total",
		Help: "Automated replies by outcome (delivered, failed, dropped).",
	}, []string{"outcome"})
	blobsReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filehub_blobs_reclaimed_total",
		Help: "Orphaned blobs removed by the reclaimer.",
	})
)
