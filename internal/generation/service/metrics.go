package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "imageforge",
	Subsystem: "generation",
	Name:      "admissions_total",
	Help:      "Generation admission decisions by outcome.",
}, []string{"outcome"})

const (
	outcomeGranted        = "granted"
	outcomeQuotaExceeded  = "quota_exceeded"
	outcomeInvalidInput   = "invalid_input"
	outcomeProviderFailed = "provider_failed"
)
