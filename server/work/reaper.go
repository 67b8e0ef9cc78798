package work

import (
	"errors"
	"time"

	"github.com/abaur/rolodex/colors"
	"github.com/abaur/rolodex/server/models"
	"gorm.io/gorm"
)

// Jobs untouched in-progress for this long are considered stuck, e.g.
// because the process died mid-send.
const stuckJobAgeMinutes = 10

type stuckJobsReaper struct {
	stopChan chan struct{}
}

func newStuckJobsReaper() *stuckJobsReaper {
	return &stuckJobsReaper{
		stopChan: make(chan struct{}),
	}
}

// start starts the reaper loop that pulls stuck jobs from 'in-progress'
// and puts them back on the queue
func (r *stuckJobsReaper) start() {
	go r.loop()
}

func (r *stuckJobsReaper) stop() {
	r.stopChan <- struct{}{}
}

func (r *stuckJobsReaper) loop() {
	var stuckJob *models.Job
	var err error

	sleepBackOff := 30
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	logg.Infof("Starting stuck jobs reaper")
	for {
		select {
		case <-r.stopChan:
			logg.Infof("Stopping stuck jobs reaper")
			return
		case <-rateLimiter.C:
			stuckJob, err = models.LastJobLastUpdated(stuckJobAgeMinutes, models.IN_PROGRESS_JOB)

			// If no stuck job found, sleep for 'sleepBackOff' minutes
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rateLimiter.Reset(time.Duration(sleepBackOff) * time.Minute)
				continue
			}

			if err != nil {
				r.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			r.requeue(stuckJob)
			rateLimiter.Reset(DefaultTickerDuration)
		}
	}
}

func (r *stuckJobsReaper) requeue(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.ENQUEUED_JOB)
	if err != nil {
		r.logError(err)
		return
	}

	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
	})
	if err != nil {
		r.logError(err)
		return
	}

	r.logInfof("job with id=%v requeued", job.ID)
}

func (r *stuckJobsReaper) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow("[job reaper] ")
	logg.Infof(prefix+template, args...)
}

func (r *stuckJobsReaper) logError(args ...interface{}) {
	prefix := colors.Red("[job reaper] ")
	logg.Error(append([]interface{}{prefix}, args...)...)
}
