package models

import "time"

// Run is one recorded pipeline execution.
type Run struct {
	ID               string     `json:"id"`
	InputPath        string     `json:"input_path"`
	InputDigest      string     `json:"input_digest,omitempty"`
	InputBytes       int64      `json:"input_bytes"`
	State            RunState   `json:"state"`
	FailedStep       string     `json:"failed_step,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	UploadedPath     string     `json:"uploaded_path,omitempty"`
	AlignedPath      string     `json:"aligned_path,omitempty"`
	TreePath         string     `json:"tree_path,omitempty"`
	RequestID        string     `json:"request_id,omitempty"`
	NodeCount        int        `json:"node_count,omitempty"`
	ExportedSVGPath  string     `json:"exported_svg_path,omitempty"`
	ExportedSVGLocal string     `json:"exported_svg_local,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}
