package services

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/hrishi-sarma/codeforedtech/internal/events"
	"github.com/hrishi-sarma/codeforedtech/internal/logger"
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

const resyncTimeout = 30 * time.Second

type ResyncReport struct {
	Checked  int     `json:"checked"`
	Repaired []int64 `json:"repaired"`
	Failed   []int64 `json:"failed"`
}

// CountSynchronizer keeps jobs.applications_count equal to the number of
// application rows. It resyncs a job after every new application and sweeps
// all jobs on a cron schedule to repair drift from failed resyncs.
type CountSynchronizer struct {
	jobs countRepository
	bus  EventBus.Bus
	cron *cron.Cron
}

func NewCountSynchronizer(jobs countRepository, bus EventBus.Bus, schedule string) (*CountSynchronizer, error) {

	cs := &CountSynchronizer{
		jobs: jobs,
		bus:  bus,
		cron: cron.New(),
	}

	if _, err := cs.cron.AddFunc(schedule, cs.resyncAllScheduled); err != nil {
		return nil, errors.Wrapf(err, "invalid resync schedule %q", schedule)
	}

	if err := bus.SubscribeAsync(events.ApplicationCreatedTopic, cs.onApplicationCreated, false); err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to application events")
	}
	if err := bus.Subscribe(events.JobDeletedTopic, cs.onJobDeleted); err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to job events")
	}

	cs.cron.Start()
	log.Infof("applications count synchronizer started, schedule: %s", schedule)
	return cs, nil
}

func (cs *CountSynchronizer) Stop() {
	<-cs.cron.Stop().Done()
	_ = cs.bus.Unsubscribe(events.ApplicationCreatedTopic, cs.onApplicationCreated)
	_ = cs.bus.Unsubscribe(events.JobDeletedTopic, cs.onJobDeleted)
	cs.bus.WaitAsync()
}

func (cs *CountSynchronizer) ResyncApplicationsCount(ctx context.Context, jobID int64) error {
	before, after, err := cs.jobs.RecountApplications(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to resync applications count of job %d: %w", jobID, err)
	}
	if before != after {
		metrics.CountDriftCounter.Inc()
		log.Debugf("applications count of job %d changed from %d to %d", jobID, before, after)
	}
	return nil
}

func (cs *CountSynchronizer) ResyncAllApplicationCounts(ctx context.Context) (*ResyncReport, error) {
	ids, err := cs.jobs.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	report := &ResyncReport{Repaired: []int64{}, Failed: []int64{}}
	for _, id := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		before, after, err := cs.jobs.RecountApplications(ctx, id)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to resync applications count of job %d: %v", id, err)
			report.Failed = append(report.Failed, id)
			continue
		}
		if before != after {
			metrics.CountDriftCounter.Inc()
			report.Repaired = append(report.Repaired, id)
		}
	}
	return report, nil
}

func (cs *CountSynchronizer) onApplicationCreated(event events.ApplicationCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	if err := cs.ResyncApplicationsCount(ctx, event.JobID); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
	}
}

func (cs *CountSynchronizer) onJobDeleted(event events.JobDeleted) {
	metrics.JobsDeletedCounter.Inc()
	log.Infof("job %d deleted with %d documents and %d applications",
		event.JobID, event.DocumentsCount, event.ApplicationsCount)
}

func (cs *CountSynchronizer) resyncAllScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := cs.ResyncAllApplicationCounts(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("scheduled count resync failed: %v", err)
		return
	}
	log.Infof("scheduled count resync checked %d jobs, repaired %d, failed %d",
		report.Checked, len(report.Repaired), len(report.Failed))
}
