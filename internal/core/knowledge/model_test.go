package knowledge

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusFailed, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobUpdate_Apply(t *testing.T) {
	now := time.Now()

	t.Run("completed sets pages crawled", func(t *testing.T) {
		job := &CrawlJob{Status: JobStatusProcessing}
		require.NoError(t, Completed(1).Apply(job, now))
		assert.Equal(t, JobStatusCompleted, job.Status)
		assert.Equal(t, 1, job.PagesCrawled)
		assert.Nil(t, job.Error)
		assert.Equal(t, now, job.UpdatedAt)
	})

	t.Run("failed records message", func(t *testing.T) {
		job := &CrawlJob{Status: JobStatusProcessing}
		require.NoError(t, Failed("boom").Apply(job, now))
		assert.Equal(t, JobStatusFailed, job.Status)
		require.NotNil(t, job.Error)
		assert.Equal(t, "boom", *job.Error)
	})

	t.Run("terminal job is rejected", func(t *testing.T) {
		job := &CrawlJob{Status: JobStatusFailed}
		err := Completed(1).Apply(job, now)
		assert.ErrorIs(t, err, ErrJobTerminal)
		assert.Equal(t, JobStatusFailed, job.Status)
	})
}

func TestKindOf(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("crawl: %w", StoreError("insert document", base))

	assert.Equal(t, KindStore, KindOf(err))
	assert.True(t, IsKind(err, KindStore))
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, &Error{Kind: KindStore})
	assert.False(t, errors.Is(err, &Error{Kind: KindFetch}))
	assert.Equal(t, KindInternal, KindOf(base))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "URL is required", UserMessage(ValidationError("crawl", "URL is required")))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
	assert.Equal(t, "insert document: disk full", StoreError("insert document", errors.New("disk full")).Error())
}
