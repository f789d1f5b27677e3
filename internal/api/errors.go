package api

import (
	"errors"
	"fmt"

	"phylo/internal/models"
)

// Step names the pipeline operation an error belongs to.
type Step string

const (
	StepUpload    Step = "upload"
	StepAlign     Step = "align"
	StepTreeBuild Step = "build_tree"
	StepFetch     Step = "fetch"
	StepSave      Step = "save"
	StepDownload  Step = "download"
)

var (
	// ErrNoRenderedTree is returned by export when nothing has been rendered.
	ErrNoRenderedTree = errors.New("no tree to save")
	// ErrMissingIdentifier is returned by export when the request id cannot be
	// recovered from the stored tree path.
	ErrMissingIdentifier = errors.New("could not determine request ID")
)

// StepError is a failed pipeline step. Network is set when the request never
// produced a usable response (dial, timeout, truncated body).
type StepError struct {
	Step    Step
	Message string
	Details string
	Status  int
	Network bool
	Err     error
}

var stepLabels = map[Step]string{
	StepUpload:    "Upload failed",
	StepAlign:     "Alignment failed",
	StepTreeBuild: "Tree building failed",
	StepFetch:     "Fetching tree data failed",
	StepSave:      "Failed to save tree",
	StepDownload:  "Download failed",
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	if e.Network {
		if e.Err != nil {
			return fmt.Sprintf("Error: %s: %v", e.Step, e.Err)
		}
		return fmt.Sprintf("Error: %s: %s", e.Step, e.Message)
	}
	label, ok := stepLabels[e.Step]
	if !ok {
		label = string(e.Step) + " failed"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", label, msg)
}

func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InProgress reports whether the service refused an upload because another
// run still holds the pipeline. Callers keep the busy indicator visible.
func (e *StepError) InProgress() bool {
	return e != nil && e.Step == StepUpload && !e.Network && e.Message == models.InProgressUploadMessage
}

// UploadError builds a service-reported upload failure.
func UploadError(message string) *StepError { return &StepError{Step: StepUpload, Message: message} }

// AlignError builds a service-reported alignment failure.
func AlignError(message string) *StepError { return &StepError{Step: StepAlign, Message: message} }

// TreeBuildError builds a service-reported tree construction failure.
func TreeBuildError(message string) *StepError {
	return &StepError{Step: StepTreeBuild, Message: message}
}

// FetchError wraps a tree data retrieval or parse failure.
func FetchError(err error) *StepError { return &StepError{Step: StepFetch, Err: err} }

// SaveError builds a service-reported export failure.
func SaveError(message string) *StepError { return &StepError{Step: StepSave, Message: message} }

// NetworkError wraps a transport-level failure of step.
func NetworkError(step Step, err error) *StepError {
	return &StepError{Step: step, Network: true, Err: err}
}

// StepOf returns the failing step of err, if err carries one.
func StepOf(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}

// IsNetworkError reports whether err is a transport-level step failure.
func IsNetworkError(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Network
}

// IsInProgress reports whether err is the in-progress upload conflict.
func IsInProgress(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.InProgress()
}
