package model

import (
	"time"
)

// JobKind is the workflow that produced a job event.
type JobKind string

const (
	JobKindConvert JobKind = "convert"
	JobKindMerge   JobKind = "merge"
)

// JobStatus is the terminal outcome of a job.
type JobStatus string

const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobEvent describes one finished conversion or merge.
type JobEvent struct {
	ID       string    `json:"id"`
	Platform string    `json:"platform"`
	UserID   string    `json:"user_id"`
	ChatID   string    `json:"chat_id"`
	Kind     JobKind   `json:"kind"`
	Status   JobStatus `json:"status"`

	// Direction is set for conversions (pdf_to_word, word_to_pdf).
	Direction   string `json:"direction,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`

	Inputs      int    `json:"inputs"`
	OutputName  string `json:"output_name,omitempty"`
	OutputBytes int    `json:"output_bytes,omitempty"`
	DurationMs  int64  `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
	Sequence  uint64    `json:"sequence,omitempty"`
}
