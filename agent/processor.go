package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/audit"
	"github.com/hiveline/hiveline/cfg"
	"github.com/hiveline/hiveline/ddl"
	"github.com/hiveline/hiveline/notify"
	"github.com/hiveline/hiveline/queue"
	"github.com/hiveline/hiveline/remote"
	"github.com/hiveline/hiveline/telemetry"
)

// Executor abstracts the remote connection manager for the worker. Satisfied
// by *remote.Manager.
type Executor interface {
	Exec(ctx context.Context, statement string) error
	Reconnect(ctx context.Context) error
}

// Processor drains the statement queue against the remote endpoint on a
// single goroutine. Statements execute strictly in queue order; a statement
// is never abandoned for connectivity reasons, only for errors classified as
// non-recoverable. Every job that reaches a terminal state produces exactly
// one outcome notification.
type Processor struct {
	queue    *queue.Queue
	executor Executor
	notifier notify.Notifier
	trail    *audit.Trail
	sync     *cfg.SyncConfiguration

	idleWait      time.Duration
	reconnectWait time.Duration

	stopCh      chan struct{}
	doneCh      chan struct{}
	running     atomic.Bool
	lifecycleMu sync.Mutex
}

// NewProcessor creates a processor over the given queue and remote executor.
func NewProcessor(q *queue.Queue, executor Executor, notifier notify.Notifier, trail *audit.Trail, syncCfg *cfg.SyncConfiguration) *Processor {
	return &Processor{
		queue:         q,
		executor:      executor,
		notifier:      notifier,
		trail:         trail,
		sync:          syncCfg,
		idleWait:      time.Duration(syncCfg.NoEventSleepMS) * time.Millisecond,
		reconnectWait: time.Duration(syncCfg.ReconnectSleepMS) * time.Millisecond,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start starts the worker goroutine.
func (p *Processor) Start() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running.Load() {
		return // Already running
	}

	p.running.Store(true)
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	log.Info().Msg("Starting replication worker")

	go p.runLoop()
}

// Stop stops the worker gracefully. A job mid-flight is abandoned without a
// notification; anything still queued stays queued.
func (p *Processor) Stop() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running.Load() {
		return // Not running
	}

	log.Info().Msg("Stopping replication worker")

	close(p.stopCh)
	<-p.doneCh // Wait for goroutine to finish
	p.running.Store(false)

	log.Info().Int("queued", p.queue.Len()).Msg("Replication worker stopped")
}

// runLoop is the main worker loop.
func (p *Processor) runLoop() {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		default:
			job, ok := p.queue.TryPop()
			if !ok {
				// No statements waiting
				if !p.sleep(p.idleWait) {
					return
				}
				continue
			}
			if !p.processJob(job) {
				return
			}
		}
	}
}

// processJob drives one job to a terminal state. Returns false only when the
// worker was stopped mid-job; in that case no notification is sent.
func (p *Processor) processJob(job queue.Job) bool {
	// Statements attempted on behalf of this job, in execution order. The
	// outcome notification lists all of them.
	statements := []string{job.Statement}

	// Corrective statements pending before the job statement is retried.
	var corrective []string

	// Each corrective action fires at most once per job. A second failure of
	// the same class after its correction is terminal.
	var droppedExisting, createdDatabase bool

	reconnects := 0

	for {
		next := job.Statement
		if len(corrective) > 0 {
			next = corrective[0]
		}

		err := p.execute(next)
		if err == nil {
			if len(corrective) > 0 {
				corrective = corrective[1:]
				continue
			}
			p.finish(job, statements, nil, reconnects)
			return true
		}

		switch remote.Classify(err) {
		case remote.ClassTransient:
			log.Warn().
				Err(err).
				Str("statement", next).
				Msg("Connectivity failure, reconnecting")
			if !p.reconnect(&reconnects) {
				return false
			}
			// Retry the same statement on the fresh connection

		case remote.ClassAlreadyExists:
			name, isCreate := ddl.TableFromCreate(next)
			if isCreate && p.sync.DropTableIfExists && !droppedExisting {
				droppedExisting = true
				drop := ddl.DropTableNamed(name)
				log.Info().
					Str("table", name).
					Msg("Table already exists on remote, dropping before recreate")
				corrective = append([]string{drop}, corrective...)
				// Notification lists the corrective ahead of the statement
				// it unblocks, mirroring how the sequence replays.
				statements = append([]string{drop}, statements...)
				telemetry.CorrectionsTotal.With("drop_existing").Inc()
				continue
			}
			p.finish(job, statements, err, reconnects)
			return true

		case remote.ClassMissingDatabase:
			database, known := remote.MissingDatabaseName(err)
			if known && p.sync.CreateMissingDB && !createdDatabase {
				createdDatabase = true
				create := ddl.CreateDatabase(database)
				log.Info().
					Str("database", database).
					Msg("Database missing on remote, creating it")
				corrective = append([]string{create}, corrective...)
				statements = append([]string{create}, statements...)
				telemetry.CorrectionsTotal.With("create_database").Inc()
				continue
			}
			p.finish(job, statements, err, reconnects)
			return true

		default:
			p.finish(job, statements, err, reconnects)
			return true
		}
	}
}

// execute runs one statement against the remote endpoint, recording the
// attempt in the audit trail.
func (p *Processor) execute(statement string) error {
	p.trail.Attempt(statement)

	log.Debug().Str("statement", statement).Msg("Executing statement on remote endpoint")

	start := time.Now()
	err := p.executor.Exec(context.Background(), statement)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		telemetry.StatementDurationSeconds.With("error").Observe(elapsed)
		telemetry.StatementsTotal.With("error").Inc()
		return err
	}
	telemetry.StatementDurationSeconds.With("success").Observe(elapsed)
	telemetry.StatementsTotal.With("success").Inc()
	return nil
}

// reconnect retries the remote connection without bound, waiting between
// attempts. Returns false if the worker was stopped while waiting.
func (p *Processor) reconnect(reconnects *int) bool {
	for {
		if !p.sleep(p.reconnectWait) {
			return false
		}

		*reconnects++
		telemetry.ReconnectsTotal.Inc()

		if err := p.executor.Reconnect(context.Background()); err != nil {
			log.Warn().
				Err(err).
				Int("attempts", *reconnects).
				Msg("Reconnect failed, will retry")
			continue
		}

		log.Info().Int("attempts", *reconnects).Msg("Reconnected to remote endpoint")
		return true
	}
}

// finish records the terminal state of a job and sends its one notification.
func (p *Processor) finish(job queue.Job, statements []string, jobErr error, reconnects int) {
	telemetry.ReconnectsPerJob.Observe(float64(reconnects))

	if jobErr == nil {
		telemetry.JobsTotal.With("success").Inc()
		log.Info().
			Str("statement", job.Statement).
			Int("reconnects", reconnects).
			Msg("Statement replicated")
		p.notify(notify.FormatOutcome("", true, statements...), "success")
		return
	}

	telemetry.JobsTotal.With("failed").Inc()
	p.trail.Error(job.Statement, jobErr.Error())
	log.Error().
		Err(jobErr).
		Str("statement", job.Statement).
		Str("class", remote.Classify(jobErr).String()).
		Msg("Statement discarded")
	p.notify(notify.FormatOutcome(jobErr.Error(), false, statements...), "failure")
}

func (p *Processor) notify(message, result string) {
	telemetry.NotificationsTotal.With(result).Inc()
	if err := p.notifier.Send(message); err != nil {
		telemetry.NotifyErrorsTotal.Inc()
		log.Warn().Err(err).Msg("Failed to deliver notification")
	}
}

// sleep sleeps for the given duration, checking stopCh.
// Returns true if sleep completed, false if stopped.
func (p *Processor) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
