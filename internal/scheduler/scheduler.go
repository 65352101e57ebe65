package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/store"
)

// Runner executes one batch sweep over a target set. Satisfied by
// scanner.CertScanner.
type Runner interface {
	Scan(ctx context.Context, hosts []string, ports []int) []models.Certificate
}

// Scheduler owns one timer per active scan definition and fires batch
// scans on their cron cadence. One mutex guards the timer map and the
// in-flight map together; it is never held across a store or network call.
type Scheduler struct {
	store  store.Store
	runner Runner
	logger *slog.Logger

	mu       sync.Mutex
	timers   map[uuid.UUID]*time.Timer
	inflight map[uuid.UUID]bool
	stopped  bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewScheduler(st store.Store, runner Runner, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:    st,
		runner:   runner,
		logger:   logger,
		timers:   make(map[uuid.UUID]*time.Timer),
		inflight: make(map[uuid.UUID]bool),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Start arms every stored active definition. A definition whose stored
// expression no longer parses is logged and left idle; the rest still arm.
func (s *Scheduler) Start(ctx context.Context) error {
	scans, err := s.store.ListActiveScanDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("loading active scan definitions: %w", err)
	}

	armed := 0
	for i := range scans {
		scan := scans[i]
		if err := s.Arm(&scan); err != nil {
			s.logger.Error("arming stored scan", "scan_id", scan.ID, "name", scan.Name, "error", err)
			continue
		}
		armed++
	}

	s.logger.Info("scheduler started", "active", len(scans), "armed", armed)
	return nil
}

// Arm replaces the timer for scan, keeping at most one timer per id. An
// inactive definition stays idle. The computed next run time is persisted.
func (s *Scheduler) Arm(scan *models.ScanDefinition) error {
	id := scan.ID

	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if s.stopped || !scan.Active {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	next, err := NextRun(scan, now)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	timer := time.AfterFunc(next.Sub(now), func() { s.fire(id) })
	s.timers[id] = timer
	s.mu.Unlock()

	nextUnix := next.Unix()
	scan.NextRunAt = &nextUnix
	if err := s.store.UpdateScanRunTimes(s.ctx, id, nil, &nextUnix); err != nil {
		s.logger.Error("persisting next run time", "scan_id", id, "error", err)
	}

	s.logger.Info("scan armed", "scan_id", id, "name", scan.Name, "next_run", next.Format(time.RFC3339))
	return nil
}

// Disarm cancels the timer for id, if any. The stored definition is left
// alone.
func (s *Scheduler) Disarm(id uuid.UUID) {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.logger.Debug("scan disarmed", "scan_id", id)
}

// RunNow executes scan id immediately and synchronously, outside its
// timer. It persists lastRun but leaves nextRun untouched, and refuses to
// overlap a run already in flight.
func (s *Scheduler) RunNow(ctx context.Context, id uuid.UUID) ([]models.Certificate, error) {
	scan, err := s.store.GetScanDefinition(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inflight[id] {
		s.mu.Unlock()
		return nil, ErrScanInFlight
	}
	s.inflight[id] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}()

	records := s.runner.Scan(ctx, scan.Hosts, scan.Ports)
	if err := s.store.UpsertCertificates(ctx, records); err != nil {
		return nil, fmt.Errorf("persisting scan results: %w", err)
	}

	last := s.now().Unix()
	if err := s.store.UpdateScanRunTimes(ctx, id, &last, nil); err != nil {
		s.logger.Error("updating last run time", "scan_id", id, "error", err)
	}

	s.logger.Info("manual run complete", "scan_id", id, "name", scan.Name, "records", len(records))
	return records, nil
}

// Stop disarms everything and waits for in-flight timer runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// fire is the timer callback. It guards against overlap, contains panics,
// and re-arms the definition when done so the cadence keeps going.
func (s *Scheduler) fire(id uuid.UUID) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.inflight[id] {
		s.mu.Unlock()
		s.logger.Warn("skipping scheduled run, previous run still in flight", "scan_id", id)
		s.rearm(id)
		return
	}
	s.inflight[id] = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled run panicked", "scan_id", id, "panic", r)
		}
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		s.wg.Done()
		s.rearm(id)
	}()

	s.runScheduled(id)
}

func (s *Scheduler) runScheduled(id uuid.UUID) {
	scan, err := s.store.GetScanDefinition(s.ctx, id)
	if err != nil {
		s.logger.Error("loading scan for scheduled run", "scan_id", id, "error", err)
		return
	}
	if !scan.Active {
		return
	}

	s.logger.Info("scheduled run firing", "scan_id", id, "name", scan.Name)

	records := s.runner.Scan(s.ctx, scan.Hosts, scan.Ports)
	if err := s.store.UpsertCertificates(s.ctx, records); err != nil {
		s.logger.Error("persisting scan results", "scan_id", id, "error", err)
	}

	last := s.now().Unix()
	if err := s.store.UpdateScanRunTimes(s.ctx, id, &last, nil); err != nil {
		s.logger.Error("updating last run time", "scan_id", id, "error", err)
	}
}

// rearm reloads the definition and arms it again. A definition deleted
// while its run was in flight simply stays idle.
func (s *Scheduler) rearm(id uuid.UUID) {
	if s.ctx.Err() != nil {
		return
	}

	scan, err := s.store.GetScanDefinition(s.ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("reloading scan after run", "scan_id", id, "error", err)
		}
		return
	}

	if err := s.Arm(scan); err != nil {
		s.logger.Error("re-arming scan", "scan_id", id, "error", err)
	}
}
