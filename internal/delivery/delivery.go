package delivery

import (
	"feedcourier/internal/metrics"
	"feedcourier/internal/storage"
	"feedcourier/internal/transport"
)

// Config carries the addressing settings shared by preparation and dispatch.
type Config struct {
	// FromAddress is the header From of every outgoing email.
	FromAddress string
	// BounceAddress is the base envelope sender; the recipient is embedded
	// into it per message so bounces identify who they were for.
	BounceAddress string
	// CatchAllAddress is appended to every send batch to observe delivery
	// health independently of real subscribers. It is excluded from billing.
	CatchAllAddress string
}

// Pipeline runs the per-feed outbox preparation and dispatch passes. It is
// the only writer that moves artifacts out of the outbox folder; the log
// stream processor owns every later transition.
type Pipeline struct {
	store     *storage.Storage
	transport transport.Transport
	metrics   *metrics.Metrics
	cfg       Config
}

// NewPipeline creates a Pipeline. metrics may be nil.
func NewPipeline(store *storage.Storage, t transport.Transport, m *metrics.Metrics, cfg Config) *Pipeline {
	return &Pipeline{store: store, transport: t, metrics: m, cfg: cfg}
}
