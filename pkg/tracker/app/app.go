// Package app owns the process-wide SDK state: the visitor identity, the
// active transmitter, and the overlay manager.
//
// The host application calls Setup once at startup. Until then every
// accessor tolerates the absent state - tracking calls made before Setup
// are silent no-ops rather than failures, so SDK lifecycle ordering can
// never crash the host.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/engagekit/tracker/pkg/tracker/config"
	trkerrors "github.com/engagekit/tracker/pkg/tracker/errors"
	"github.com/engagekit/tracker/pkg/tracker/inapp"
	"github.com/engagekit/tracker/pkg/tracker/observability"
	"github.com/engagekit/tracker/pkg/tracker/spool"
	"github.com/engagekit/tracker/pkg/tracker/transmit"
)

// DefaultEndpoint is the collection endpoint used when none is configured.
const DefaultEndpoint = "https://collect.engagekit.io/v1/track"

// App is the host-application singleton: visitor identity plus the owned
// transmission and overlay subsystems.
type App struct {
	mu        sync.Mutex
	visitorID string
	store     *visitorStore

	tx         *transmit.Transmitter
	spoolStore spool.Store
	overlays   *inapp.Manager
	logger     *slog.Logger
}

var (
	sharedMu sync.RWMutex
	shared   *App
)

// Option configures Setup.
type Option func(*App)

// WithLogger sets the logger used by the app and its transmitter.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// Setup initializes the shared App from configuration and starts its
// transmitter. A previously set up App is shut down first. The transmitter
// consults the process-wide delegate slot, so a delegate set before Setup
// is active from the first delivery.
func Setup(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		overlays: inapp.NewManager(),
	}
	for _, opt := range opts {
		opt(a)
	}

	dataDir := cfg.String("data_dir", ".engage")
	a.store = newVisitorStore(filepath.Join(dataDir, "visitor.json"))

	id, err := a.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load visitor identity: %w", err)
	}
	if id == "" {
		id = uuid.New().String()
		if err := a.store.Save(id); err != nil {
			return nil, fmt.Errorf("persist visitor identity: %w", err)
		}
	}
	a.visitorID = id

	if path := cfg.String("spool_path", ""); path != "" {
		store, err := spool.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open spool: %w", err)
		}
		a.spoolStore = store
	} else {
		a.spoolStore = spool.NewMemoryStore()
	}

	var metrics observability.MetricsRecorder
	if cfg.Bool("metrics", false) {
		metrics = observability.NewMetricsRecorder()
	}
	var spans observability.SpanManager
	if cfg.Bool("tracing", false) {
		spans = observability.NewSpanManager()
	}

	a.tx = transmit.New(transmit.Config{
		Endpoint:      cfg.String("endpoint", DefaultEndpoint),
		APIKey:        cfg.String("api_key", ""),
		QueueSize:     cfg.Int("queue_size", 0),
		BatchSize:     cfg.Int("batch_size", 0),
		FlushInterval: cfg.Duration("flush_interval", 0),
		Retry:         retryFromConfig(cfg),
		Spool:         a.spoolStore,
		Logger:        a.logger,
		Metrics:       metrics,
		Spans:         spans,
	})

	sharedMu.Lock()
	previous := shared
	shared = a
	sharedMu.Unlock()

	// Re-read the delegate slot after publishing: a SetDelegate call that
	// raced with construction may have propagated to the previous
	// transmitter, or to none at all.
	a.tx.SetDelegate(transmit.DefaultDelegate())

	if previous != nil {
		previous.close()
	}
	return a, nil
}

// retryFromConfig builds the delivery retry policy from configuration.
func retryFromConfig(cfg config.Config) trkerrors.RetryConfig {
	retry := trkerrors.DefaultRetry
	retry.MaxAttempts = cfg.Int("max_attempts", retry.MaxAttempts)
	retry.InitialBackoff = cfg.Duration("initial_backoff", retry.InitialBackoff)
	retry.MaxBackoff = cfg.Duration("max_backoff", retry.MaxBackoff)
	return retry
}

// Shared returns the App set up by the host application, or nil before
// Setup.
func Shared() *App {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	return shared
}

// Shutdown stops the shared App's transmitter, closes its spool, and
// clears the singleton. Safe to call without a prior Setup.
func Shutdown() error {
	sharedMu.Lock()
	a := shared
	shared = nil
	sharedMu.Unlock()

	if a == nil {
		return nil
	}
	return a.close()
}

func (a *App) close() error {
	if err := a.tx.Close(); err != nil {
		return err
	}
	return a.spoolStore.Close()
}

// VisitorID returns the current global visitor identity.
func (a *App) VisitorID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visitorID
}

// RenewVisitorID rotates the visitor identity and persists the new value.
// Tasks created before the renewal keep the identity they were stamped
// with.
func (a *App) RenewVisitorID() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.New().String()
	if err := a.store.Save(id); err != nil {
		return "", fmt.Errorf("persist visitor identity: %w", err)
	}
	a.visitorID = id
	return id, nil
}

// Transmitter returns the active transmission subsystem.
func (a *App) Transmitter() *transmit.Transmitter {
	return a.tx
}

// Overlays returns the overlay manager.
func (a *App) Overlays() *inapp.Manager {
	return a.overlays
}

// Logger returns the configured logger, which may be nil.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
