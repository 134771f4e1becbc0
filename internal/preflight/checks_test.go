package preflight

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fixture builds a resource directory with main/ and event/ plus an
// executable sidecar script.
func fixture(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	res := filepath.Join(dir, "functions")
	for _, sub := range []string{"main", "event"} {
		if err := os.MkdirAll(filepath.Join(res, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	sidecar := filepath.Join(dir, "edge-runtime")
	if err := os.WriteFile(sidecar, []byte("#!/bin/sh\necho edge-runtime 1.2.3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return Options{
		SidecarPath: sidecar,
		ResourceDir: res,
		MainService: "main",
		EventWorker: "event",
	}
}

func findCheck(t *testing.T, r *Result, name string) Check {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s check in results", name)
	return Check{}
}

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		c := Check{
			Name:     "test_check",
			Required: 100,
			Actual:   200,
			Passed:   true,
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("Passed check should have ✓")
		}
		if !strings.Contains(s, "200") || !strings.Contains(s, "100") {
			t.Error("Should contain actual and required values")
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		c := Check{Name: "test_check", Required: 100, Actual: 50, Passed: false}
		if !strings.Contains(c.String(), "✗") {
			t.Error("Failed check should have ✗")
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		c := Check{Name: "test_check", Passed: true, Warning: true, Message: "warning message"}
		s := c.String()
		if !strings.Contains(s, "⚠") || !strings.Contains(s, "warning message") {
			t.Errorf("String() = %q", s)
		}
	})
}

func TestRunAll_Pass(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script sidecar")
	}
	opts := fixture(t)
	opts.ProbeVersion = true

	result := RunAll(context.Background(), opts)

	for _, name := range []string{"sidecar", "resource_dir", "main_service", "event_worker"} {
		if c := findCheck(t, result, name); !c.Passed {
			t.Errorf("%s failed: %s", name, c.Message)
		}
	}
	if c := findCheck(t, result, "sidecar_version"); c.Message != "edge-runtime 1.2.3" {
		t.Errorf("sidecar_version = %q", c.Message)
	}
	fd := findCheck(t, result, "file_descriptors")
	if fd.Passed != result.Passed {
		t.Errorf("overall Passed = %v, fd check = %v", result.Passed, fd.Passed)
	}
}

func TestRunAll_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, o *Options)
		failed string
	}{
		{
			name:   "missing_sidecar",
			mutate: func(t *testing.T, o *Options) { o.SidecarPath = "/nonexistent/edge-runtime" },
			failed: "sidecar",
		},
		{
			name:   "empty_sidecar",
			mutate: func(t *testing.T, o *Options) { o.SidecarPath = "" },
			failed: "sidecar",
		},
		{
			name:   "sidecar_is_dir",
			mutate: func(t *testing.T, o *Options) { o.SidecarPath = o.ResourceDir },
			failed: "sidecar",
		},
		{
			name:   "missing_resource_dir",
			mutate: func(t *testing.T, o *Options) { o.ResourceDir = filepath.Join(t.TempDir(), "nope") },
			failed: "resource_dir",
		},
		{
			name: "missing_event_worker",
			mutate: func(t *testing.T, o *Options) {
				if err := os.Remove(filepath.Join(o.ResourceDir, "event")); err != nil {
					t.Fatal(err)
				}
			},
			failed: "event_worker",
		},
		{
			name: "main_service_is_file",
			mutate: func(t *testing.T, o *Options) {
				p := filepath.Join(o.ResourceDir, "main")
				if err := os.Remove(p); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(p, nil, 0o644); err != nil {
					t.Fatal(err)
				}
			},
			failed: "main_service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fixture(t)
			tt.mutate(t, &opts)

			result := RunAll(context.Background(), opts)
			if result.Passed {
				t.Fatal("expected overall failure")
			}
			if c := findCheck(t, result, tt.failed); c.Passed {
				t.Errorf("%s should fail", tt.failed)
			}
			if err := result.Err(); err == nil || !strings.Contains(err.Error(), tt.failed) {
				t.Errorf("Err() = %v, want mention of %s", err, tt.failed)
			}
		})
	}
}

func TestCheckSidecar_NotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no executable bit on windows")
	}
	path := filepath.Join(t.TempDir(), "edge-runtime")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := checkSidecar(path)
	if c.Passed || !strings.Contains(c.Message, "not executable") {
		t.Errorf("check = %+v", c)
	}
}

func TestCheckSidecarVersion_Warning(t *testing.T) {
	c := checkSidecarVersion(context.Background(), "/nonexistent/edge-runtime")
	if !c.Passed || !c.Warning {
		t.Errorf("probe failure should be a warning: %+v", c)
	}
}

func TestCheckFileDescriptors(t *testing.T) {
	check := checkFileDescriptors(1)

	if check.Name != "file_descriptors" {
		t.Errorf("Name = %q, want file_descriptors", check.Name)
	}
	if runtime.GOOS == "windows" {
		return
	}
	if check.Actual <= 0 {
		t.Errorf("Actual should be positive: %d", check.Actual)
	}
	if !check.Passed {
		t.Errorf("limit %d should cover 1 descriptor", check.Actual)
	}
}

func TestResult_Failed(t *testing.T) {
	r := &Result{Passed: true}
	r.add(Check{Name: "a", Passed: true})
	r.add(Check{Name: "b", Passed: true, Warning: true})
	if r.Err() != nil || len(r.Failed()) != 0 {
		t.Error("warnings must not fail the result")
	}

	r.add(Check{Name: "c", Passed: false})
	if r.Passed {
		t.Error("Passed should be false after a failing check")
	}
	if got := r.Failed(); len(got) != 1 || got[0] != "c" {
		t.Errorf("Failed() = %v", got)
	}
}

func TestSuggestFix(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{"file_descriptors", "ulimit -n"},
		{"sidecar", "--sidecar-path"},
		{"resource_dir", "--resource-dir"},
		{"event_worker", "subdirectory"},
		{"unknown", "documentation"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fix := suggestFix(tc.name)
			if !strings.Contains(fix, tc.expected) {
				t.Errorf("suggestFix(%q) = %q, should contain %q", tc.name, fix, tc.expected)
			}
		})
	}
}

func TestPrintResults(t *testing.T) {
	result := &Result{
		Checks: []Check{
			{Name: "sidecar", Passed: true, Message: "ok"},
			{Name: "resource_dir", Passed: false, Message: "/x does not exist"},
		},
		Passed: false,
	}

	var buf bytes.Buffer
	PrintResults(&buf, result)

	out := buf.String()
	for _, want := range []string{"Preflight checks:", "✓ sidecar", "✗ resource_dir", "Fix: pass --resource-dir"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
