package domain

import "time"

type IngestMode string

const (
	IngestAppend  IngestMode = "append"
	IngestReplace IngestMode = "replace"
)

func ParseIngestMode(raw string) IngestMode {
	if IngestMode(raw) == IngestReplace {
		return IngestReplace
	}
	return IngestAppend
}

// IngestJob references uploads parked in object storage for the worker.
type IngestJob struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Keys      []string  `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
}

type IndexAction string

const (
	IndexBuilt   IndexAction = "built"
	IndexDeleted IndexAction = "deleted"
)

type IndexEvent struct {
	Category string      `json:"category"`
	Action   IndexAction `json:"action"`
	Version  string      `json:"version,omitempty"`
	Passages int         `json:"passages"`
	At       time.Time   `json:"at"`
}
