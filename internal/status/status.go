// Package status reports pipeline progress to the user: one replaceable
// status line and a busy indicator.
package status

// Reporter is the progress sink of a pipeline run. Calls never fail.
type Reporter interface {
	SetStatus(message string)
	ShowLoading()
	HideLoading()
	Loading() bool
}

// Progress messages shown between pipeline steps.
const (
	MsgUploaded  = "File uploaded. Processing..."
	MsgAligned   = "Alignment completed. Building tree..."
	MsgTreeBuilt = "The tree was built successfully. Rendering..."
	MsgRendered  = "The tree was built successfully. Rendering is complete."
)
