package dag

// JobState is the status of a job during a build.
type JobState string

const (
	JobPending   JobState = "PENDING"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
	JobSkipped   JobState = "SKIPPED"
	JobCached    JobState = "CACHED"
)
