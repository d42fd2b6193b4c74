package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Anandtech09/reception-prime-queue/internal/engine"
	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/pkg/messaging"
	"github.com/Anandtech09/reception-prime-queue/pkg/metrics"
)

const publishTimeout = 2 * time.Second

type Config struct {
	Channel      string
	PollInterval time.Duration
}

// Syncer wires the engine to the durable slot and the broadcast channel.
// Every mutation is persisted and published; remote snapshots replace local
// state unconditionally, last write wins. With no broker it downgrades to
// polling the slot, never to a hard failure.
//
// The change hook only records the snapshot; Run's publish loop does the
// store and broker I/O, so a Redis stall never holds the engine lock.
type Syncer struct {
	store   Store
	broker  messaging.Broker
	eng     *engine.Engine
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	notify  func(*model.Snapshot)

	mu      gosync.Mutex
	last    []byte
	pending *model.Snapshot
	wake    chan struct{}
}

func New(store Store, broker messaging.Broker, eng *engine.Engine, cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Syncer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Syncer{
		store:   store,
		broker:  broker,
		eng:     eng,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		wake:    make(chan struct{}, 1),
	}
}

// SetNotify registers an extra consumer of snapshots, fed on both local
// publishes and remote applies. The display hub hangs off this.
func (s *Syncer) SetNotify(fn func(*model.Snapshot)) {
	s.notify = fn
}

// Restore seeds the engine from the durable slot, if anything is there.
func (s *Syncer) Restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return nil
		}
		return err
	}
	s.eng.Replace(snap)
	s.remember(snap)
	s.logger.Info().Msg("queue state restored from store")
	return nil
}

// Enqueue is the engine's change hook. It runs under the engine lock, so it
// must not touch the network; it parks the snapshot for the publish loop.
// Snapshots are whole-state, so an unflushed one is simply superseded.
func (s *Syncer) Enqueue(snap *model.Snapshot) {
	s.mu.Lock()
	s.pending = snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the publish loop and listens for remote snapshots until ctx is
// cancelled. With a broker it subscribes to the sync channel; without one it
// polls the slot.
func (s *Syncer) Run(ctx context.Context) error {
	go s.publishLoop(ctx)

	if s.broker == nil {
		s.logger.Warn().Msg("no broadcast channel available, falling back to store polling")
		s.poll(ctx)
		return nil
	}

	msgs, err := s.broker.Subscribe(ctx, s.cfg.Channel)
	if err != nil {
		s.logger.Warn().Err(err).Msg("subscribe failed, falling back to store polling")
		s.poll(ctx)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			s.handleMessage(raw)
		}
	}
}

func (s *Syncer) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			for {
				s.mu.Lock()
				snap := s.pending
				s.pending = nil
				s.mu.Unlock()
				if snap == nil {
					break
				}
				s.publish(ctx, snap)
			}
		}
	}
}

// publish persists one snapshot and broadcasts it. Failures are logged and
// counted, not surfaced: sync is advisory and must never fail a front-desk
// operation. The snapshot is remembered before the broadcast goes out, so
// the message echoed back by Redis pub/sub dedupes instead of reapplying.
func (s *Syncer) publish(ctx context.Context, snap *model.Snapshot) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	failed := false
	if err := s.store.Save(ctx, snap); err != nil {
		failed = true
		s.logger.Error().Err(err).Msg("failed to persist snapshot")
	}

	s.remember(snap)

	if s.broker != nil {
		msg := messaging.Message{Type: messaging.MessageTypeStateUpdate, State: snap}
		if err := s.broker.Publish(ctx, s.cfg.Channel, msg); err != nil {
			failed = true
			s.logger.Error().Err(err).Msg("failed to broadcast snapshot")
		}
	}

	if s.metrics != nil {
		if failed {
			s.metrics.SyncPublishFailures.Inc()
		} else {
			s.metrics.SyncPublished.Inc()
		}
	}
	if s.notify != nil {
		s.notify(snap)
	}
}

type stateMessage struct {
	Type  string          `json:"type"`
	State *model.Snapshot `json:"state"`
}

func (s *Syncer) handleMessage(raw []byte) {
	var msg stateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn().Err(err).Msg("dropping malformed sync message")
		return
	}
	if msg.Type != messaging.MessageTypeStateUpdate || msg.State == nil {
		return
	}
	s.apply(msg.State)
}

func (s *Syncer) poll(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := s.store.Load(ctx)
			if err != nil {
				if !errors.Is(err, ErrNoSnapshot) {
					s.logger.Warn().Err(err).Msg("failed to poll snapshot")
				}
				continue
			}
			s.apply(snap)
		}
	}
}

// apply replaces local state with a remote snapshot, skipping snapshots
// identical to the last one seen so a station does not rebroadcast or
// reapply its own writes.
func (s *Syncer) apply(snap *model.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}

	s.mu.Lock()
	same := bytes.Equal(payload, s.last)
	if !same {
		s.last = payload
	}
	s.mu.Unlock()
	if same {
		return
	}

	s.eng.Replace(snap)
	if s.metrics != nil {
		s.metrics.SyncApplied.Inc()
	}
	if s.notify != nil {
		s.notify(snap)
	}
}

func (s *Syncer) remember(snap *model.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.last = payload
	s.mu.Unlock()
}
