package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Output{jsonMode: jsonMode, stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func TestOutputRunTable(t *testing.T) {
	out, stdout, _ := newTestOutput(false)

	out.Run(&RunResponse{
		ID:         "run-1",
		WorkflowID: "wf-1",
		Status:     "FAILED",
		Error:      &RunError{Message: "boom"},
	})

	got := stdout.String()
	for _, want := range []string{"STATUS", "run-1", "FAILED", "boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}
}

func TestOutputRunJSON(t *testing.T) {
	out, stdout, _ := newTestOutput(true)

	out.Run(&RunResponse{ID: "run-1", Status: "COMPLETED"})

	var run RunResponse
	if err := json.Unmarshal(stdout.Bytes(), &run); err != nil {
		t.Fatalf("json output did not parse: %v", err)
	}
	if run.ID != "run-1" || run.Status != "COMPLETED" {
		t.Errorf("decoded run = %+v", run)
	}
}

func TestOutputPluginsTable(t *testing.T) {
	out, stdout, _ := newTestOutput(false)

	out.Plugins([]PluginResponse{
		{ID: "http_request", Name: "HTTP Request", Category: "Data"},
		{ID: "trigger", Name: "Trigger", Category: "Core"},
	})

	got := stdout.String()
	if !strings.Contains(got, "http_request") || !strings.Contains(got, "trigger") {
		t.Errorf("table output missing plugin rows:\n%s", got)
	}
}

func TestOutputSuccessGoesToStderr(t *testing.T) {
	out, stdout, stderr := newTestOutput(false)

	out.Success("Run started: run-1")

	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want data stream untouched", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Run started: run-1") {
		t.Errorf("stderr = %q, want success message", stderr.String())
	}
}
