package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	chatsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_chats_created_total",
		Help: "Total number of created character chats.",
	})

	messagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of accepted chat messages.",
	})

	likesToggledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_likes_toggled_total",
		Help: "Total number of like toggles.",
	})

	adsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ads_completed_total",
			Help: "Total number of ad completion attempts by outcome.",
		},
		[]string{"outcome"},
	)
)
