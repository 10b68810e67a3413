// Package metrics содержит прометей-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts — счётчик попыток входа по результату (success, failure).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xnema_login_attempts_total",
		Help: "Number of login attempts by result.",
	}, []string{"result"})

	// WebhookEvents — счётчик событий платёжного провайдера по типу.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xnema_payment_webhook_events_total",
		Help: "Number of payment webhook events by event type.",
	}, []string{"event"})

	// SubscriptionsCreated — счётчик созданных подписок.
	SubscriptionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xnema_subscriptions_created_total",
		Help: "Number of subscriptions created.",
	})

	// SubscriptionCreateDuration — длительность создания подписки.
	SubscriptionCreateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xnema_subscription_create_duration_seconds",
		Help:    "Duration of subscription creation.",
		Buckets: prometheus.DefBuckets,
	})
)
