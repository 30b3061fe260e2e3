package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/middleware"
	"whatsrelay/internal/models"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp"
	"whatsrelay/pkg/whatsapp/types"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const webhookType = "whatsapp"

type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	errLog  *apperrors.Logger
	relay   service.RelayService
	cfg     *models.Config
	secrets atomic.Pointer[models.Secrets]
	verbose bool
	server  *http.Server
}

func NewServer(cfg *models.Config, relay service.RelayService, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		errLog:  apperrors.FromLogrus(logger),
		relay:   relay,
		cfg:     cfg,
		verbose: verbose,
	}
	s.UpdateSecrets(cfg.Secrets())

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))
	s.router.Use(s.verboseMiddleware)
	if s.verbose {
		s.router.Use(middleware.DetailedLoggingMiddleware(s.logger, middleware.DefaultDetailedLoggingConfig()))
	}

	// Health check
	s.router.HandleFunc("/", s.handleHealth()).Methods(http.MethodGet)

	// Provider callbacks
	webhook := middleware.WebhookObservabilityMiddleware(s.logger, webhookType)
	s.router.Handle("/webhook", webhook(s.handleWebhookVerify())).Methods(http.MethodGet)
	s.router.Handle("/webhook", webhook(s.handleWebhookEvent())).Methods(http.MethodPost)

	// Client polling
	s.router.HandleFunc("/pull", s.handlePull()).Methods(http.MethodGet)

	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the CORS layer
func (s *Server) Handler() http.Handler {
	return middleware.CORSMiddleware(s.cfg.Server.CORSAllowOrigin)(s.router)
}

// UpdateSecrets swaps the verify token and pull secret used by later requests
func (s *Server) UpdateSecrets(secrets models.Secrets) {
	s.secrets.Store(&secrets)
}

func (s *Server) currentSecrets() models.Secrets {
	return *s.secrets.Load()
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.cfg.Port).Info("Starting relay server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) verboseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(service.WithVerbose(r.Context(), s.verbose)))
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusOK, healthResponse{
			Status:  "ok",
			Pending: s.relay.Pending(),
		})
	}
}

// handleWebhookVerify answers the provider's one-time subscription handshake
func (s *Server) handleWebhookVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get(types.QueryHubMode)
		token := query.Get(types.QueryHubVerifyToken)

		if !whatsapp.VerifySubscription(mode, token, s.currentSecrets().VerifyToken) {
			s.errLog.LogWarn(apperrors.NewAuthError("webhook verification rejected"), "Rejected webhook verification", logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(r.Context()),
				"mode":                    mode,
			})
			w.WriteHeader(http.StatusForbidden)
			return
		}

		s.logger.WithField(service.LogFieldRequestID, tracing.GetRequestID(r.Context())).Info("Webhook verified")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(query.Get(types.QueryHubChallenge)))
	}
}

// handleWebhookEvent always acknowledges with 200 so the provider does not
// retry. Unreadable bodies and payloads are only logged.
func (s *Server) handleWebhookEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fields := logrus.Fields{service.LogFieldRequestID: tracing.GetRequestID(ctx)}

		body, err := readWebhookBody(w, r, s.cfg.MaxWebhookBodyBytes)
		if err != nil {
			s.errLog.LogWarn(err, "Failed to read webhook body", fields)
			w.WriteHeader(http.StatusOK)
			return
		}

		result := s.relay.Ingest(ctx, body)
		if !result.OK() {
			fields[service.LogFieldCount] = len(result.Records)
			fields[service.LogFieldSkipped] = result.Skipped
			fields[service.LogFieldErrorCount] = len(result.Errors)
			s.errLog.LogWarn(result.Err(), "Malformed webhook payload", fields)
		}

		w.WriteHeader(http.StatusOK)
	}
}

// handlePull drains the queue for a client presenting the pull secret
func (s *Server) handlePull() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !authorizePull(r, s.currentSecrets()) {
			s.errLog.LogWarn(apperrors.NewAuthError("pull secret mismatch"), "Rejected pull request", logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(ctx),
				service.LogFieldPending:   s.relay.Pending(),
			})
			w.WriteHeader(http.StatusForbidden)
			return
		}

		s.writeJSON(w, r, http.StatusOK, s.relay.Pull(ctx))
	}
}

// writeJSON encodes v before writing any header so an encoding failure can
// still be reported as a 500
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.errLog.LogError(apperrors.Wrap(err, apperrors.ErrCodeResponseEncoding, "failed to encode response"), "Failed to encode response", logrus.Fields{
			service.LogFieldRequestID: tracing.GetRequestID(r.Context()),
			service.LogFieldURL:       r.URL.Path,
		})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
