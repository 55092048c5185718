package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "gastos/internal/log"
)

// Resyncer rebuilds the mirror from storage for the given users.
type Resyncer interface {
	Resync(ctx context.Context, userIDs ...string) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Users whose ledgers are mirrored on every pass.
	Users []string

	// Interval between passes (default: 1h). Zero runs the startup pass only.
	Interval time.Duration

	// MaxRetries is the number of attempts per pass (default: 3)
	MaxRetries int

	// RetryDelay is the wait before the second attempt; it doubles after
	// each failure (default: 5s)
	RetryDelay time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:   time.Hour,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
	}
}

// SyncStats summarizes the passes run so far.
type SyncStats struct {
	Runs      int
	Failures  int
	LastRun   time.Time
	LastError string
}

// SyncProcessor periodically re-mirrors whole ledgers so changes whose
// messages were lost still reach the mirror.
type SyncProcessor struct {
	resyncer Resyncer
	config   SyncProcessorConfig
	logger   *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stats   SyncStats
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(resyncer Resyncer, config SyncProcessorConfig, logger *applog.Logger) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncProcessor{
		resyncer: resyncer,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.resyncer == nil {
		p.mu.Unlock()
		return fmt.Errorf("sync processor has no resyncer")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"interval", p.config.Interval,
		"users", len(p.config.Users))
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns a copy of the pass counters.
func (p *SyncProcessor) Stats() SyncStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	// Process immediately on startup
	p.runPass(ctx)
	if p.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runPass(ctx)
		}
	}
}

// runPass resyncs every configured user, retrying with exponential backoff.
func (p *SyncProcessor) runPass(ctx context.Context) {
	if len(p.config.Users) == 0 {
		return
	}
	delay := p.config.RetryDelay
	var err error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		if err = p.resyncer.Resync(ctx, p.config.Users...); err == nil {
			break
		}
		p.logger.WarnContext(ctx, "Resync pass failed",
			applog.FieldError, err,
			"attempt", attempt,
			"max_retries", p.config.MaxRetries)
		if attempt == p.config.MaxRetries {
			break
		}
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}

	p.mu.Lock()
	p.stats.Runs++
	p.stats.LastRun = time.Now()
	p.stats.LastError = ""
	if err != nil {
		p.stats.Failures++
		p.stats.LastError = err.Error()
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.ErrorContext(ctx, "Resync pass failed permanently after max retries",
			applog.FieldError, err,
			"attempts", p.config.MaxRetries)
	}
}
