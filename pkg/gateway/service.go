// Package gateway runs the enabled channel adapters against one dispatcher
// and serves the health/logs observability sidecar.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"voicemorph/pkg/channel"
	"voicemorph/pkg/config"
	"voicemorph/pkg/dispatch"
	"voicemorph/pkg/effects"
	"voicemorph/pkg/engine"
	"voicemorph/pkg/logger"
	"voicemorph/pkg/menu"
	"voicemorph/pkg/token"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 10000
)

type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	catalog    *effects.Catalog
	dispatcher *dispatch.Dispatcher
	channels   []channel.Adapter
	ring       *logger.Ring

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Effects       int                     `json:"effects"`
	Channels      map[string]channelState `json:"channels"`
}

// Option adjusts service wiring.
type Option func(*serviceOptions)

type serviceOptions struct {
	engineOpts []engine.Option
}

// WithEngineOptions forwards options to the transcode engine, for example a
// replacement runner in tests.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *serviceOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// NewService wires the effect catalog, transcode engine, and dispatcher, and
// prepares the sidecar for the given channel adapters.
//
// ring may be nil; the /logs endpoint then serves an empty history.
func NewService(cfg *config.Config, adapters []channel.Adapter, ring *logger.Ring, log *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	var options serviceOptions
	for _, opt := range opts {
		opt(&options)
	}

	catalog := effects.NewCatalog()
	builder := menu.NewBuilder(catalog, token.Codec{})
	eng := engine.New(catalog, cfg.Transcoder, log, options.engineOpts...)
	dispatcher := dispatch.New(catalog, builder, eng, cfg.Transcoder.MaxConcurrent, log)

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		catalog:       catalog,
		dispatcher:    dispatcher,
		channels:      adapters,
		ring:          ring,
		channelStates: channelStates,
	}, nil
}

// Dispatcher exposes the wired dispatcher, mainly for offline commands.
func (s *Service) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go s.runSidecar(ctx, serverErrors)

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		adapter := adapter
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.dispatcher)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) runSidecar(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/logs", s.handleLogs)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Sidecar started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start sidecar server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

// handleLogs serves the most recent captured log entries, oldest first.
func (s *Service) handleLogs(w http.ResponseWriter, _ *http.Request) {
	entries := []logger.LogEntry{}
	if s.ring != nil {
		entries = s.ring.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.log.Error("Failed to write logs response", "error", err)
	}
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Effects:       s.catalog.Len(),
		Channels:      channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
