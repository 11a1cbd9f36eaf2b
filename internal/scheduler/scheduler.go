package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"tokenwatch/internal/classify"
	"tokenwatch/internal/config"
	"tokenwatch/internal/ledger"
	"tokenwatch/internal/models"
	"tokenwatch/internal/repository"
)

// Fetcher supplies one round's candidates and per-token snapshots.
type Fetcher interface {
	Candidates(ctx context.Context) []models.TokenCandidate
	Snapshot(ctx context.Context, address string) *models.MarketSnapshot
}

// Notifier delivers one alert; an error means delivery did not happen and
// the token must stay eligible.
type Notifier interface {
	Notify(ctx context.Context, snap *models.MarketSnapshot, tier models.Tier) error
}

// Status is the live view served by the status endpoint.
type Status struct {
	RoundsRun     int                `json:"rounds_run"`
	RoundInFlight bool               `json:"round_in_flight"`
	NextInterval  string             `json:"next_interval"`
	MidLedger     int                `json:"mid_ledger"`
	HighLedger    int                `json:"high_ledger"`
	LastRound     *models.RoundStats `json:"last_round,omitempty"`
}

// Scheduler drives sequential rounds: fetch, classify, dedup-gate, notify,
// then adapt the next delay to how busy the round was. Rounds never
// overlap; per-token work inside a round fans out up to a fixed ceiling.
type Scheduler struct {
	fetcher    Fetcher
	classifier classify.Classifier
	ledger     *ledger.Ledger
	notifier   Notifier
	repo       repository.Repository
	logger     *zap.Logger
	cfg        config.SchedulerConfig
	now        func() time.Time

	running atomic.Bool
	trigger chan struct{}

	mu        sync.Mutex
	roundsRun int
	last      models.RoundStats
	interval  time.Duration
}

// New wires a scheduler. repo may be nil (no activity sink); now may be nil
// (wall clock).
func New(fetcher Fetcher, cls classify.Classifier, led *ledger.Ledger, notifier Notifier, repo repository.Repository, cfg config.SchedulerConfig, logger *zap.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		fetcher:    fetcher,
		classifier: cls,
		ledger:     led,
		notifier:   notifier,
		repo:       repo,
		logger:     logger,
		cfg:        cfg,
		now:        now,
		trigger:    make(chan struct{}, 1),
		interval:   cfg.DefaultInterval,
	}
}

// Run loops rounds until the context is canceled. The first round starts
// immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-s.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		stats := s.RunRound(ctx)
		delay := s.nextDelay(stats)

		s.mu.Lock()
		s.interval = delay
		s.mu.Unlock()

		timer.Reset(delay)
	}
}

// Trigger requests an immediate round. It reports false when a round is
// already in flight or a trigger is pending.
func (s *Scheduler) Trigger() bool {
	if s.running.Load() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunRound executes one full round. The re-entrancy guard makes a call
// during an in-flight round a no-op. Any panic inside the round is
// recovered and the round is treated as empty.
func (s *Scheduler) RunRound(ctx context.Context) models.RoundStats {
	if !s.running.CompareAndSwap(false, true) {
		return models.RoundStats{}
	}
	defer s.running.Store(false)

	stats := models.RoundStats{StartedAt: s.now()}
	func() {
		defer func() {
			if r := recover(); r != nil {
				if s.logger != nil {
					s.logger.Error("round panicked", zap.Any("panic", r))
				}
				stats = models.RoundStats{StartedAt: stats.StartedAt}
			}
		}()
		s.executeRound(ctx, &stats)
	}()
	stats.Duration = s.now().Sub(stats.StartedAt)

	s.mu.Lock()
	s.roundsRun++
	s.last = stats
	s.mu.Unlock()

	s.recordRound(ctx, stats)
	if s.logger != nil {
		s.logger.Info("round complete",
			zap.Int("candidates", stats.Candidates),
			zap.Int("prefiltered", stats.Prefiltered),
			zap.Int("snapshot_misses", stats.SnapshotMisses),
			zap.Int("suppressed", stats.Suppressed),
			zap.Int("mid_notified", stats.MidNotified),
			zap.Int("high_notified", stats.HighNotified),
			zap.Int("notify_failed", stats.NotifyFailed),
			zap.Duration("took", stats.Duration),
		)
	}
	return stats
}

type roundCounters struct {
	mu             sync.Mutex
	snapshotMisses int
	suppressed     int
	midNotified    int
	highNotified   int
	notifyFailed   int
}

func (s *Scheduler) executeRound(ctx context.Context, stats *models.RoundStats) {
	candidates := s.fetcher.Candidates(ctx)
	stats.Candidates = len(candidates)

	now := s.now()
	kept := candidates[:0]
	for _, cand := range candidates {
		if s.classifier.Prefilter(cand, now) {
			kept = append(kept, cand)
		}
	}
	stats.Prefiltered = stats.Candidates - len(kept)

	var counters roundCounters
	g := new(errgroup.Group)
	limit := s.cfg.FanOut
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, cand := range kept {
		cand := cand
		g.Go(func() error {
			s.processToken(ctx, cand, &counters)
			return nil
		})
	}
	_ = g.Wait()

	stats.SnapshotMisses = counters.snapshotMisses
	stats.Suppressed = counters.suppressed
	stats.MidNotified = counters.midNotified
	stats.HighNotified = counters.highNotified
	stats.NotifyFailed = counters.notifyFailed
}

// processToken is one token's full journey through a round. A token is
// processed by exactly one goroutine per round, so its check-then-record
// against the ledger never races itself.
func (s *Scheduler) processToken(ctx context.Context, cand models.TokenCandidate, counters *roundCounters) {
	snap := s.fetcher.Snapshot(ctx, cand.Address)
	if snap == nil {
		counters.mu.Lock()
		counters.snapshotMisses++
		counters.mu.Unlock()
		return
	}

	now := s.now()
	tier := s.classifier.Classify(cand, snap, now)
	if tier == models.TierNone {
		return
	}

	if s.ledger.HasNotified(cand.Address, tier, now) {
		counters.mu.Lock()
		counters.suppressed++
		counters.mu.Unlock()
		return
	}
	// A token already alerted at High never drops back to a Mid alert.
	if tier == models.TierMid && s.ledger.HasNotified(cand.Address, models.TierHigh, now) {
		counters.mu.Lock()
		counters.suppressed++
		counters.mu.Unlock()
		return
	}

	if err := s.notifier.Notify(ctx, snap, tier); err != nil {
		// Not recorded: the token stays eligible next round.
		counters.mu.Lock()
		counters.notifyFailed++
		counters.mu.Unlock()
		return
	}

	sentAt := s.now()
	s.ledger.Record(cand.Address, tier, sentAt)
	if tier == models.TierHigh {
		s.ledger.Promote(cand.Address)
	}

	counters.mu.Lock()
	if tier == models.TierHigh {
		counters.highNotified++
	} else {
		counters.midNotified++
	}
	counters.mu.Unlock()

	s.recordAlert(ctx, snap, tier, sentAt)
}

func (s *Scheduler) nextDelay(stats models.RoundStats) time.Duration {
	if stats.Notified() >= s.cfg.BurstThreshold {
		return s.cfg.BurstInterval
	}
	return s.cfg.DefaultInterval
}

// Status returns a snapshot of live pipeline state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	roundsRun := s.roundsRun
	last := s.last
	interval := s.interval
	s.mu.Unlock()

	st := Status{
		RoundsRun:     roundsRun,
		RoundInFlight: s.running.Load(),
		NextInterval:  interval.String(),
	}
	if s.ledger != nil {
		st.MidLedger, st.HighLedger = s.ledger.Sizes()
	}
	if roundsRun > 0 {
		st.LastRound = &last
	}
	return st
}

func (s *Scheduler) recordAlert(ctx context.Context, snap *models.MarketSnapshot, tier models.Tier, sentAt time.Time) {
	if s.repo == nil {
		return
	}
	payload, _ := json.Marshal(snap)
	item := &models.AlertRecord{
		Address:   snap.Address,
		Symbol:    snap.Symbol,
		Tier:      tier.String(),
		MarketCap: snap.MarketCap,
		Payload:   datatypes.JSON(payload),
		SentAt:    sentAt,
	}
	if err := s.repo.InsertAlert(ctx, item); err != nil && s.logger != nil {
		s.logger.Warn("alert record insert failed", zap.Error(err))
	}
}

func (s *Scheduler) recordRound(ctx context.Context, stats models.RoundStats) {
	if s.repo == nil {
		return
	}
	item := &models.RoundRecord{
		StartedAt:      stats.StartedAt,
		DurationMs:     stats.Duration.Milliseconds(),
		Candidates:     stats.Candidates,
		Prefiltered:    stats.Prefiltered,
		SnapshotMisses: stats.SnapshotMisses,
		Suppressed:     stats.Suppressed,
		MidNotified:    stats.MidNotified,
		HighNotified:   stats.HighNotified,
		NotifyFailed:   stats.NotifyFailed,
		NextIntervalMs: s.nextDelay(stats).Milliseconds(),
	}
	if err := s.repo.InsertRound(ctx, item); err != nil && s.logger != nil {
		s.logger.Warn("round record insert failed", zap.Error(err))
	}
}
