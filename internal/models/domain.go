package models

import (
	"fmt"
	"strings"
)

// RunState defines the lifecycle states of one pipeline run.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateUploading        RunState = "uploading"
	StateAligning         RunState = "aligning"
	StateBuildingTree     RunState = "building_tree"
	StateFetchingTreeData RunState = "fetching_tree_data"
	StateRendered         RunState = "rendered"
	StateFailed           RunState = "failed"
)

const (
	// InProgressUploadMessage is the exact upload error the service returns
	// while another run still owns the pipeline.
	InProgressUploadMessage = "Another process is currently running. Please wait."

	// TreeMaxDepth bounds the nesting accepted when decoding tree data.
	TreeMaxDepth = 512
)

var validRunStates = map[RunState]struct{}{
	StateIdle:             {},
	StateUploading:        {},
	StateAligning:         {},
	StateBuildingTree:     {},
	StateFetchingTreeData: {},
	StateRendered:         {},
	StateFailed:           {},
}

// runStateOrder is the only forward path through the pipeline.
var runStateOrder = []RunState{
	StateIdle,
	StateUploading,
	StateAligning,
	StateBuildingTree,
	StateFetchingTreeData,
	StateRendered,
}

var terminalRunStates = []RunState{
	StateRendered,
	StateFailed,
}

func IsValidRunState(state RunState) bool {
	_, ok := validRunStates[state]
	return ok
}

func ParseRunState(raw string) (RunState, error) {
	value := RunState(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("state is required")
	}
	if !IsValidRunState(value) {
		return "", fmt.Errorf("invalid state: %s", value)
	}
	return value, nil
}

// NextRunState returns the state that follows s on success.
func NextRunState(s RunState) (RunState, bool) {
	for i, state := range runStateOrder {
		if state == s && i+1 < len(runStateOrder) {
			return runStateOrder[i+1], true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible from s.
func (s RunState) IsTerminal() bool {
	for _, state := range terminalRunStates {
		if state == s {
			return true
		}
	}
	return false
}

func RunStateStrings() []string {
	out := make([]string, 0, len(validRunStates))
	for _, state := range runStateOrder {
		out = append(out, string(state))
	}
	return append(out, string(StateFailed))
}
