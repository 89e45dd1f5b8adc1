package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "imageforge",
	Subsystem: "billing",
	Name:      "webhook_events_total",
	Help:      "Webhook events by type and outcome.",
}, []string{"type", "outcome"})
