package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJob(t *testing.T, jm *JobManager, scope string, total int) *Job {
	t.Helper()
	job := jm.CreateJob(scope, total)
	require.NotNil(t, job)
	return job
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	require.NotNil(t, jm)
	assert.Empty(t, jm.ListJobs())
}

func TestCreateJob(t *testing.T) {
	t.Run("new job fields correct", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 12)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "all", job.Scope)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.Equal(t, 12, job.DocumentsTotal)
		assert.False(t, job.StartedAt.IsZero())
		assert.True(t, job.CompletedAt.IsZero())
		assert.Zero(t, job.DocumentsOK)
		assert.Zero(t, job.DocumentsFailed)
		assert.Empty(t, job.ErrorMessage)
	})

	t.Run("duplicate running scope returns same job", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "all", 1)
		job2 := createTestJob(t, jm, "all", 1)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("new job allowed after completion", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job1.ID, JobStatusCompleted, "")

		job2 := createTestJob(t, jm, "all", 1)
		assert.NotEqual(t, job1.ID, job2.ID)
	})

	t.Run("different scopes independent", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "1,2", 2)
		job2 := createTestJob(t, jm, "3", 1)
		assert.NotEqual(t, job1.ID, job2.ID)
	})
}

func TestGetJob(t *testing.T) {
	jm := NewJobManager()

	t.Run("exists returns snapshot", func(t *testing.T) {
		job := createTestJob(t, jm, "all", 1)
		got := jm.GetJob(job.ID)
		require.NotNil(t, got)
		assert.Equal(t, job.ID, got.ID)

		got.Status = JobStatusFailed
		assert.Equal(t, JobStatusPending, jm.GetJob(job.ID).Status, "snapshot edits do not leak")
	})

	t.Run("missing returns nil", func(t *testing.T) {
		assert.Nil(t, jm.GetJob("nonexistent-id"))
	})
}

func TestGetJobByScope(t *testing.T) {
	jm := NewJobManager()

	t.Run("exists returns job", func(t *testing.T) {
		job := createTestJob(t, jm, "all", 1)
		got := jm.GetJobByScope("all")
		require.NotNil(t, got)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		assert.Nil(t, jm.GetJobByScope("nonexistent"))
	})

	t.Run("returns nil after completion", func(t *testing.T) {
		job := createTestJob(t, jm, "finished", 1)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.Nil(t, jm.GetJobByScope("finished"))
	})
}

func TestIsRunning(t *testing.T) {
	jm := NewJobManager()

	t.Run("true for pending", func(t *testing.T) {
		createTestJob(t, jm, "pending", 1)
		assert.True(t, jm.IsRunning("pending"))
	})

	t.Run("true for running", func(t *testing.T) {
		job := createTestJob(t, jm, "running", 1)
		jm.UpdateStatus(job.ID, JobStatusRunning, "")
		assert.True(t, jm.IsRunning("running"))
	})

	t.Run("false for completed", func(t *testing.T) {
		job := createTestJob(t, jm, "completed", 1)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.False(t, jm.IsRunning("completed"))
	})

	t.Run("false for failed", func(t *testing.T) {
		job := createTestJob(t, jm, "failed", 1)
		jm.UpdateStatus(job.ID, JobStatusFailed, "something broke")
		assert.False(t, jm.IsRunning("failed"))
	})

	t.Run("false for cancelled", func(t *testing.T) {
		job := createTestJob(t, jm, "cancelled", 1)
		jm.CancelJob(job.ID)
		assert.False(t, jm.IsRunning("cancelled"))
	})

	t.Run("false for nonexistent", func(t *testing.T) {
		assert.False(t, jm.IsRunning("ghost"))
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("to running", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job.ID, JobStatusRunning, "")
		assert.Equal(t, JobStatusRunning, jm.GetJob(job.ID).Status)
	})

	t.Run("to completed sets CompletedAt and releases scope", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCompleted, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.False(t, jm.IsRunning("all"))
		assert.Error(t, jm.GetContext(job.ID).Err())
	})

	t.Run("to failed sets ErrorMessage", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job.ID, JobStatusFailed, "documents file vanished")

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusFailed, got.Status)
		assert.Equal(t, "documents file vanished", got.ErrorMessage)
		assert.False(t, got.CompletedAt.IsZero())
	})

	t.Run("cancelled job stays cancelled", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.CancelJob(job.ID)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.Equal(t, JobStatusCancelled, jm.GetJob(job.ID).Status)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager()
		// Should not panic
		jm.UpdateStatus("fake-id", JobStatusRunning, "")
	})
}

func TestUpdateProgress(t *testing.T) {
	t.Run("sets counters", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 10)
		jm.UpdateProgress(job.ID, 8, 2, 40)

		got := jm.GetJob(job.ID)
		assert.Equal(t, 8, got.DocumentsOK)
		assert.Equal(t, 2, got.DocumentsFailed)
		assert.Equal(t, 40, got.Headings)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager()
		// Should not panic
		jm.UpdateProgress("fake-id", 1, 2, 3)
	})
}

func TestCancelJob(t *testing.T) {
	t.Run("running job cancelled", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job.ID, JobStatusRunning, "")

		assert.True(t, jm.CancelJob(job.ID))

		got := jm.GetJob(job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.False(t, got.CompletedAt.IsZero())

		// Context should be done
		assert.Error(t, jm.GetContext(job.ID).Err())
	})

	t.Run("completed job not cancellable", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")

		assert.False(t, jm.CancelJob(job.ID))
	})

	t.Run("nonexistent returns false", func(t *testing.T) {
		jm := NewJobManager()
		assert.False(t, jm.CancelJob("nope"))
	})
}

func TestCancelAll(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "a", 1)
	job2 := createTestJob(t, jm, "b", 1)
	job3 := createTestJob(t, jm, "c", 1)
	jm.UpdateStatus(job3.ID, JobStatusCompleted, "")

	jm.CancelAll()

	assert.Equal(t, JobStatusCancelled, jm.GetJob(job1.ID).Status)
	assert.Equal(t, JobStatusCancelled, jm.GetJob(job2.ID).Status)
	assert.Equal(t, JobStatusCompleted, jm.GetJob(job3.ID).Status) // completed stays completed

	// Scopes released: new jobs allowed for cancelled scopes
	newJob := jm.CreateJob("a", 1)
	assert.NotEqual(t, job1.ID, newJob.ID)
}

func TestListJobs(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "a", 1)
	job2 := createTestJob(t, jm, "b", 1)
	job3 := createTestJob(t, jm, "c", 1)

	jobs := jm.ListJobs()
	assert.Len(t, jobs, 3)

	// Order-independent: collect IDs into a set
	ids := make(map[string]bool)
	for _, j := range jobs {
		ids[j.ID] = true
	}
	assert.True(t, ids[job1.ID])
	assert.True(t, ids[job2.ID])
	assert.True(t, ids[job3.ID])
}

func TestGetContext(t *testing.T) {
	t.Run("valid job returns non-cancelled context", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "all", 1)
		assert.NoError(t, jm.GetContext(job.ID).Err())
	})

	t.Run("nonexistent returns background context", func(t *testing.T) {
		jm := NewJobManager()
		ctx := jm.GetContext("nope")
		require.NoError(t, ctx.Err())
		assert.Equal(t, context.Background(), ctx)
	})
}
