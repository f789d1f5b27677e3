package status

import "sync"

// Recorder keeps the last status and indicator state in memory.
type Recorder struct {
	mu       sync.Mutex
	status   string
	loading  bool
	shows    int
	messages []string
}

// SetStatus replaces the current status.
func (r *Recorder) SetStatus(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = message
	r.messages = append(r.messages, message)
}

// ShowLoading turns the indicator on.
func (r *Recorder) ShowLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loading {
		r.shows++
	}
	r.loading = true
}

// HideLoading turns the indicator off.
func (r *Recorder) HideLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
}

// Loading reports the indicator state.
func (r *Recorder) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Status returns the current status text.
func (r *Recorder) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Messages returns every status set so far, oldest first.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Shows counts off-to-on transitions of the indicator.
func (r *Recorder) Shows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shows
}
