package domain

import "time"

// EnrichJobCause описывает источник запроса на обогащение.
type EnrichJobCause string

const (
	// EnrichCauseManual — обогащение запрошено через API.
	EnrichCauseManual EnrichJobCause = "manual"
	// EnrichCauseStartup — обогащение запущено при старте процесса.
	EnrichCauseStartup EnrichJobCause = "startup"
)

// EnrichJob содержит задачу пакетного обогащения событий.
// Пустой список EventIDs означает "все необогащённые".
type EnrichJob struct {
	ID          string         `json:"job_id,omitempty"`
	EventIDs    []int64        `json:"event_ids,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
	Cause       EnrichJobCause `json:"cause"`
}

// JobState перечисляет состояния фоновой задачи.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// JobStatus — наблюдаемое состояние фоновой задачи сбора/обогащения.
type JobStatus struct {
	State      JobState   `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	LastError  string     `json:"last_error,omitempty"`
}
