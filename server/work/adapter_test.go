package work

import (
	"bytes"
	"testing"
	"time"

	"github.com/abaur/rolodex/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPerform(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC")
	outputBuffer := new(bytes.Buffer)

	// Register job function
	writeToBuffer := func(m map[string]interface{}) error {
		_, err := outputBuffer.WriteString("Hello")
		return err
	}
	workerPool.Register("write_to_buffer", writeToBuffer)

	err := workerPool.Perform(JobParams{
		Name:    "write_to_buffer",
		Handler: "write_to_buffer",
		Args:    map[string]interface{}{},
	})
	assert.Nil(t, err)
	assert.Empty(t, outputBuffer.String(), "Job should not run before the pool starts")

	workerPool.Start()

	// Wait for job to be processed
	time.Sleep(2 * time.Second)

	workerPool.Stop()

	assert.Equal(t, "Hello", outputBuffer.String(), "Expected job to write to outputBuffer")
}

func TestPerformDedupesQueuedJobs(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC")

	job := JobParams{
		Name:    "send_verification_email-a@x.com",
		Handler: "send_verification_email",
		Args:    map[string]interface{}{"email": "a@x.com", "token": "t"},
	}

	// A duplicate of a job still waiting in the queue is swallowed
	assert.Nil(t, workerPool.Perform(job))
	assert.Nil(t, workerPool.Perform(job))

	jobs, paging, err := models.FetchJobs(1)
	assert.Nil(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, int64(1), paging.Total)
}
