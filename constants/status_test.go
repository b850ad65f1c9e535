package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusPending, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusProcessing, false},
		{JobStatusCompleted, JobStatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPredecessorOf(t *testing.T) {
	from, ok := PredecessorOf(JobStatusCompleted)
	assert.True(t, ok)
	assert.Equal(t, JobStatusProcessing, from)

	from, ok = PredecessorOf(JobStatusProcessing)
	assert.True(t, ok)
	assert.Equal(t, JobStatusPending, from)

	_, ok = PredecessorOf(JobStatusPending)
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	for _, s := range JobStatuses {
		want := s == JobStatusCompleted || s == JobStatusFailed
		assert.Equal(t, want, s.IsTerminal(), s)
	}
	assert.Equal(t, []string{"PENDING", "PROCESSING", "COMPLETED", "FAILED"}, JobStatusValues())
}
