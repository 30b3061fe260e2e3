package main

import (
	"net/http"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"

	"github.com/sirupsen/logrus"
)

// metricsPrefixParam narrows the snapshot, e.g. /metrics?prefix=relay_
const metricsPrefixParam = "prefix"

// handleMetrics returns a snapshot of the in-process metrics registry
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestInfo := tracing.GetRequestInfo(r.Context())

		s.logger.WithFields(logrus.Fields{
			service.LogFieldRequestID: requestInfo.RequestID,
			service.LogFieldTraceID:   requestInfo.TraceID,
			service.LogFieldEndpoint:  "/metrics",
		}).Debug("Serving metrics endpoint")

		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		s.writeJSON(w, r, http.StatusOK, metrics.GetAllMetrics().Filter(r.URL.Query().Get(metricsPrefixParam)))
	}
}
