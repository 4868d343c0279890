package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/patternscan/internal/concept"
	"github.com/wonny/patternscan/internal/metrics"
	"github.com/wonny/patternscan/pkg/logger"
)

// ConceptSyncer fetches a fresh concept snapshot
type ConceptSyncer interface {
	Sync(ctx context.Context) (*concept.SyncResult, error)
}

// ConceptSyncJob refreshes the concept and name caches
type ConceptSyncJob struct {
	syncer      ConceptSyncer
	schedule    string
	conceptPath string
	namePath    string
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewConceptSyncJob creates a new concept sync job
func NewConceptSyncJob(s ConceptSyncer, schedule, conceptPath, namePath string, m *metrics.Metrics, log *logger.Logger) *ConceptSyncJob {
	return &ConceptSyncJob{
		syncer:      s,
		schedule:    schedule,
		conceptPath: conceptPath,
		namePath:    namePath,
		metrics:     m,
		logger:      log.WithField("job", "concept_sync"),
	}
}

// Name returns the job name
func (j *ConceptSyncJob) Name() string {
	return "concept_sync"
}

// Schedule returns the cron schedule
func (j *ConceptSyncJob) Schedule() string {
	return j.schedule
}

// Run syncs and persists; the previous cache stays when the sync fails
func (j *ConceptSyncJob) Run(ctx context.Context) (err error) {
	defer func() { j.metrics.ObserveConceptSync(err) }()

	result, err := j.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync concepts: %w", err)
	}
	if err := result.Persist(j.conceptPath, j.namePath); err != nil {
		return fmt.Errorf("persist concepts: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"codes":  result.Concepts.Len(),
		"boards": result.Boards,
		"failed": result.FailedBoards,
	}).Info("Concept cache refreshed")
	return nil
}
