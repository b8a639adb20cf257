package model

import "time"

// RunStatus represents the state of an analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of the fetch-merge-classify pipeline.
type Run struct {
	ID        string    `json:"id"`
	Years     []int     `json:"years"`
	Mode      string    `json:"mode"`
	Status    RunStatus `json:"status"`
	Areas     int       `json:"areas"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
