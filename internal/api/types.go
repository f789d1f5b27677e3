package api

// ErrorResponse is the failure shape every pipeline endpoint answers with.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	ErrorResponse
	Message  string `json:"message,omitempty"`
	Filepath string `json:"filepath,omitempty"`
}

// AlignRequest is the body of POST /align.
type AlignRequest struct {
	Filepath string `json:"filepath"`
}

// AlignResponse is returned by POST /align.
type AlignResponse struct {
	ErrorResponse
	Message         string `json:"message,omitempty"`
	AlignedFilepath string `json:"aligned_filepath,omitempty"`
}

// BuildTreeRequest is the body of POST /build_tree.
type BuildTreeRequest struct {
	AlignedFilepath string `json:"aligned_filepath"`
}

// BuildTreeResponse is returned by POST /build_tree. TreeFilepath points at
// the newick file and is informational only.
type BuildTreeResponse struct {
	ErrorResponse
	Message          string `json:"message,omitempty"`
	TreeFilepath     string `json:"tree_filepath,omitempty"`
	JSONTreeFilepath string `json:"json_tree_filepath,omitempty"`
}

// SaveTreeRequest is the body of POST /save_tree.
type SaveTreeRequest struct {
	SVG       string `json:"svg"`
	RequestID string `json:"request_id"`
}

// SaveTreeResponse is returned by POST /save_tree.
type SaveTreeResponse struct {
	ErrorResponse
	Message  string `json:"message,omitempty"`
	Filepath string `json:"filepath,omitempty"`
}
