package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eventscout/internal/domain"
)

// JobRunner выполняет фоновый проход сбор+обогащение с наблюдаемым
// статусом и возможностью отмены.
type JobRunner struct {
	service *Service
	sources []Source
	log     zerolog.Logger

	mu      sync.Mutex
	status  domain.JobStatus
	cancel  context.CancelFunc
	running bool
}

// NewJobRunner создаёт раннер.
func NewJobRunner(service *Service, sources []Source, log zerolog.Logger) *JobRunner {
	return &JobRunner{
		service: service,
		sources: sources,
		log:     log.With().Str("component", "collect_job").Logger(),
		status:  domain.JobStatus{State: domain.JobStateIdle},
	}
}

// Start запускает проход в фоне. Повторный запуск при живом проходе
// игнорируется и возвращает false.
func (j *JobRunner) Start(parent context.Context) bool {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	j.running = true
	j.cancel = cancel
	j.status = domain.JobStatus{State: domain.JobStateRunning, StartedAt: &now}
	j.mu.Unlock()

	go j.run(ctx)
	return true
}

func (j *JobRunner) run(ctx context.Context) {
	defer func() {
		j.mu.Lock()
		j.running = false
		j.cancel = nil
		j.mu.Unlock()
	}()

	collectStats, err := j.service.Collect(ctx, j.sources)
	if err != nil {
		j.finish(domain.JobStateFailed, collectStats.Collected, collectStats.Failed, err)
		return
	}

	enrichStats, err := j.service.EnrichBatch(ctx, nil)
	if err != nil {
		j.finish(domain.JobStateFailed, enrichStats.Processed, collectStats.Failed, err)
		return
	}

	if _, err := j.service.CleanupPast(); err != nil {
		j.log.Warn().Err(err).Msg("зачистка после прохода не удалась")
	}

	j.finish(domain.JobStateDone, enrichStats.Processed, collectStats.Failed, nil)
	j.log.Info().
		Int("collected", collectStats.Collected).
		Int("enriched", enrichStats.Processed).
		Int("failed_sources", collectStats.Failed).
		Msg("проход завершён")
}

func (j *JobRunner) finish(state domain.JobState, processed, skipped int, err error) {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.State = state
	j.status.FinishedAt = &now
	j.status.Processed = processed
	j.status.Skipped = skipped
	if err != nil {
		j.status.LastError = err.Error()
	}
}

// Stop отменяет живой проход.
func (j *JobRunner) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Status возвращает текущее состояние прохода.
func (j *JobRunner) Status() domain.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
