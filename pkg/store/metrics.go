package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_users_created_total",
		Help: "Total number of user accounts created.",
	})
	conversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_conversations_created_total",
		Help: "Total number of conversations created.",
	})
	messagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_messages_appended_total",
		Help: "Total number of messages appended to conversations.",
	})
	messagesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chathub_messages_purged_total",
		Help: "Total number of soft-deleted messages removed by retention.",
	})
)
