// Package jobs runs background maintenance for the analysis archive.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/store"
)

// Pruner deletes archived rows older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (store.PruneResult, error)
}

// RetentionJob periodically removes archived reports and analysis events
// older than the retention window.
type RetentionJob struct {
	pruner    Pruner
	logger    *logrus.Entry
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewRetentionJob creates a retention job. A zero interval defaults to one hour.
func NewRetentionJob(p Pruner, logger *logrus.Logger, retention, interval time.Duration) *RetentionJob {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetentionJob{
		pruner:    p,
		logger:    logger.WithField("component", "retention"),
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background loop. The first pass runs immediately.
func (j *RetentionJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.WithFields(logrus.Fields{
		"retention": j.retention,
		"interval":  j.interval,
	}).Info("retention job started")
}

// Stop ends the loop and waits for an in-progress pass. It is safe to call more than once.
func (j *RetentionJob) Stop() {
	j.once.Do(func() {
		close(j.stopCh)
		j.wg.Wait()
		j.logger.Info("retention job stopped")
	})
}

func (j *RetentionJob) run() {
	defer j.wg.Done()

	j.RunOnce(context.Background())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(context.Background())
		case <-j.stopCh:
			return
		}
	}
}

// RunOnce performs a single prune pass.
func (j *RetentionJob) RunOnce(ctx context.Context) (store.PruneResult, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	res, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		j.logger.WithError(err).Warn("prune failed")
		return res, err
	}
	if res.Reports > 0 || res.Events > 0 {
		j.logger.WithFields(logrus.Fields{
			"reports": res.Reports,
			"events":  res.Events,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		}).Info("pruned archive")
	}
	return res, nil
}
