// File: /jobs/activation_cleanup_job.go
package jobs

import (
	"context"
	"sync"
	"time"

	"eventhub-api/logging"
	"eventhub-api/metrics"
)

// AccountRemover deletes accounts whose activation window has closed.
type AccountRemover interface {
	RemoveExpiredAccounts(ctx context.Context) (int, error)
}

// ActivationCleanupJob periodically removes never-activated accounts.
type ActivationCleanupJob struct {
	remover  AccountRemover
	interval time.Duration
	timeout  time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func NewActivationCleanupJob(remover AccountRemover, interval time.Duration) *ActivationCleanupJob {
	return &ActivationCleanupJob{
		remover:  remover,
		interval: interval,
		timeout:  time.Minute,
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop.
func (j *ActivationCleanupJob) Start() {
	logging.Info().Dur("interval", j.interval).Msg("activation cleanup job started")

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.cleanup()
		for {
			select {
			case <-ticker.C:
				j.cleanup()
			case <-j.done:
				logging.Info().Msg("activation cleanup job stopped")
				return
			}
		}
	}()
}

// Stop waits for a running pass to finish. Safe to call more than once.
func (j *ActivationCleanupJob) Stop() {
	j.once.Do(func() { close(j.done) })
	j.wg.Wait()
}

// RunOnce performs a single pass and returns how many accounts were removed.
func (j *ActivationCleanupJob) RunOnce(ctx context.Context) (int, error) {
	removed, err := j.remover.RemoveExpiredAccounts(ctx)
	if err != nil {
		return 0, err
	}
	metrics.AccountsRemoved.Add(float64(removed))
	return removed, nil
}

func (j *ActivationCleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.RunOnce(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("activation cleanup failed")
		return
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("removed expired inactive accounts")
	}
}
