package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Job is a unit of background work, e.g. one verification email to
// deliver. Jobs are claimed, processed & retried by the worker pool.
type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	JobStatusID uint       `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status"`
}

// MarkAsClaimed attempts to claim the job for a worker. The conditional
// update is the only claim mechanism, so at most one worker wins.
func (job *Job) MarkAsClaimed() (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", job.ID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func (job *Job) Update(data map[string]interface{}) error {
	return db.Model(job).Updates(data).Error
}

// CreateUniqueJobByName enqueues a job unless one with the same name is
// already enqueued or in progress, in which case ErrDuplicateJob is
// returned.
func CreateUniqueJobByName(name string, handler string, args string) error {
	enqueuedStatus, err := FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return err
	}

	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return err
	}

	statusIDs := []uint{enqueuedStatus.ID, inProgressStatus.ID}
	result := db.Where("name = ? AND job_status_id IN ?", name, statusIDs).First(&Job{})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	if result.RowsAffected > 0 {
		return ErrDuplicateJob
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		JobStatusID: enqueuedStatus.ID,
	}).Error
}

// LastJob returns the most recent job with the given status & claim flag.
func LastJob(status string, claimed bool) (*Job, error) {
	job := Job{}
	err := db.Joins(
		"INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ? AND claimed = ?",
		status, claimed).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func FetchJobs(page int) ([]Job, *Paging, error) {
	var total int64
	jobs := []Job{}

	err := db.Model(&Job{}).Count(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Preload("JobStatus").Order("jobs.id desc").Find(&jobs).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	return jobs, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func CurrentJobsStats() (*JobsStats, error) {
	const JOIN_QUERY = "INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?"
	stats := JobsStats{}

	counts := []struct {
		status string
		dest   *int64
	}{
		{ENQUEUED_JOB, &stats.EnqueuedJobCount},
		{IN_PROGRESS_JOB, &stats.InProgressJobCount},
		{SUCCESSFUL_JOB, &stats.SuccessfulJobCount},
		{DEAD_JOB, &stats.DeadJobCount},
	}

	for _, count := range counts {
		err := db.Joins(JOIN_QUERY, count.status).Model(&Job{}).Count(count.dest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return &stats, nil
}

// LastJobLastUpdated returns the last job of 'status' whose record has
// not been touched for at least 'minutesAgo' minutes.
//
// WARNING: THIS QUERY IS UNIQUE TO SQLITE, REMEMBER TO UPDATE IT IF/WHEN
// OTHER SQL DATABASES ARE SUPPORTED
func LastJobLastUpdated(minutesAgo uint, status string) (*Job, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = db.Where(
		"job_status_id = ? AND datetime(updated_at, ?) <= datetime('now')",
		jobStatus.ID,
		fmt.Sprintf("+%v minute", minutesAgo),
	).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}
