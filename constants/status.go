package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "PENDING"    // created at upload, not yet picked up
	JobStatusProcessing JobStatus = "PROCESSING" // committed before any extraction work
	JobStatusCompleted  JobStatus = "COMPLETED"  // terminal success
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
)

// JobStatuses lists every status, in lifecycle order.
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusCompleted,
	JobStatusFailed,
}

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed},
}

// String implements fmt.Stringer.
func (s JobStatus) String() string { return string(s) }

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether from -> to is a legal step of the job lifecycle.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PredecessorOf returns the single status a job must hold before moving to s.
func PredecessorOf(s JobStatus) (JobStatus, bool) {
	for _, from := range JobStatuses {
		if CanTransition(from, s) {
			return from, true
		}
	}
	return "", false
}

// JobStatusValues returns the statuses as plain strings (for schema enums).
func JobStatusValues() []string {
	out := make([]string, 0, len(JobStatuses))
	for _, s := range JobStatuses {
		out = append(out, string(s))
	}
	return out
}
