package status

import (
	"bytes"
	"strings"
	"testing"
)

func TestRecorderIdempotentIndicator(t *testing.T) {
	var r Recorder
	r.ShowLoading()
	r.ShowLoading()
	if !r.Loading() || r.Shows() != 1 {
		t.Fatalf("expected one visible indicator, got loading=%v shows=%d", r.Loading(), r.Shows())
	}
	r.HideLoading()
	r.HideLoading()
	if r.Loading() {
		t.Fatal("expected indicator hidden")
	}
}

func TestRecorderReplacesStatus(t *testing.T) {
	var r Recorder
	r.SetStatus(MsgUploaded)
	r.SetStatus(MsgAligned)
	if r.Status() != MsgAligned {
		t.Fatalf("expected %q, got %q", MsgAligned, r.Status())
	}
	if got := r.Messages(); len(got) != 2 || got[0] != MsgUploaded {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestTerminalPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	rep := NewTerminal(&buf)
	rep.ShowLoading()
	rep.SetStatus(MsgUploaded)
	rep.SetStatus(MsgRendered)
	rep.HideLoading()
	rep.HideLoading()

	if rep.Loading() {
		t.Fatal("expected indicator hidden")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two status lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], MsgUploaded) || !strings.Contains(lines[1], MsgRendered) {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if strings.ContainsAny(buf.String(), "\r") {
		t.Fatal("expected no in-place redraws on a non-terminal writer")
	}
}

func TestTerminalNotify(t *testing.T) {
	var buf bytes.Buffer
	rep := NewTerminal(&buf)
	rep.ShowLoading()
	rep.Notify("Upload failed: " + "boom")

	if !rep.Loading() {
		t.Fatal("expected notify to leave the indicator alone")
	}
	if got := strings.TrimSpace(buf.String()); !strings.Contains(got, "Upload failed: boom") {
		t.Fatalf("expected failure line, got %q", got)
	}
}
