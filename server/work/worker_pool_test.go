package work

import (
	"errors"
	"testing"
	"time"

	"github.com/abaur/rolodex/server/models"
	"github.com/stretchr/testify/assert"
)

func TestFailingJobIsRetriedThenMarkedDead(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC")

	// Register job function that fails on every attempt
	alwaysFail := func(m map[string]interface{}) error {
		return errors.New("smtp: connection refused")
	}
	workerPool.Register("always_fail", alwaysFail)

	err := workerPool.Perform(JobParams{
		Name:    "always_fail",
		Handler: "always_fail",
		Args:    map[string]interface{}{},
	})
	assert.Nil(t, err)

	workerPool.Start()

	// Wait for the job to run through all of its retries
	time.Sleep(2 * time.Second)

	workerPool.Stop()

	job, err := models.LastJob(models.DEAD_JOB, false)
	assert.Nil(t, err)
	assert.Equal(t, MAX_FAILS, job.Fails, "The job should fail MAX_FAILS times before it is given up on")
	assert.Equal(t, "smtp: connection refused", job.LastError)

	stats, err := models.CurrentJobsStats()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), stats.DeadJobCount)
	assert.Equal(t, int64(0), stats.EnqueuedJobCount, "A dead job should not be retried again")
}

func TestReaperRequeuesStuckJob(t *testing.T) {
	models.InitializeTestDb()

	err := models.CreateUniqueJobByName("stuck_job", "send_verification_email", "{}")
	assert.Nil(t, err)

	job, err := models.LastJob(models.ENQUEUED_JOB, false)
	assert.Nil(t, err)

	claimed, err := job.MarkAsClaimed()
	assert.Nil(t, err)
	assert.True(t, claimed)

	reaper := newStuckJobsReaper()
	reaper.requeue(job)

	requeued, err := models.LastJob(models.ENQUEUED_JOB, false)
	assert.Nil(t, err)
	assert.Equal(t, job.ID, requeued.ID, "The stuck job should be back on the queue, unclaimed")
}
