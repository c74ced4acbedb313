package model

import "time"

// RunStatus represents the current state of a cleaning run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusProcessing RunStatus = "processing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// TaskResult is the structured outcome returned to whatever invoked the run:
// either a message plus artifact link, or an error description.
type TaskResult struct {
	Message      string `json:"message,omitempty"`
	ArtifactLink string `json:"artifact_link,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Failed reports whether the result describes a terminal error.
func (r TaskResult) Failed() bool {
	return r.Error != ""
}

// Run is a persisted record of one dataset-cleaning task.
type Run struct {
	ID        string      `json:"id"`
	FileName  string      `json:"file_name"`
	Status    RunStatus   `json:"status"`
	Result    *TaskResult `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
