package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlags restores package flag state between runs of the shared root command.
func resetFlags(t *testing.T) {
	t.Helper()
	configPath, operator, metricsAddr = "", "", ""
	captureReport = false
	cfg = nil
	t.Setenv("FWPANEL_CONFIG", "")
	t.Setenv("FWPANEL_OPERATOR", "")
	t.Setenv("FWPANEL_METRICS_ADDRESS", "")
	t.Setenv("FWPANEL_REPORT_DIR", "")
}

type fakeBackend struct {
	captures   atomic.Int32
	drops      atomic.Int32
	lastUser   atomic.Value
	lastDropIP atomic.Value
	capture    func(w http.ResponseWriter)
	dropStatus int
}

func newFakeBackend(t *testing.T, fb *fakeBackend) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/start-capture-and-predict/", func(w http.ResponseWriter, r *http.Request) {
		fb.captures.Add(1)
		var body struct {
			User string `json:"user"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.lastUser.Store(body.User)
		fb.capture(w)
	})
	mux.HandleFunc("/drop-packets/", func(w http.ResponseWriter, r *http.Request) {
		fb.drops.Add(1)
		var body struct {
			IP string `json:"ip"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.lastDropIP.Store(body.IP)
		status := fb.dropStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Setenv("FWPANEL_BACKEND_URL", srv.URL)
}

const mixedBatch = `{
  "predictions": [0, 1],
  "packet_data": [
    {"Source IP": "10.0.0.1", "Destination IP": "10.0.0.9", "Protocol": 6, "Source Port": 51000, "Destination Port": 443, "Packet Length": 60},
    {"Source IP": "6.6.6.6", "Destination IP": "10.0.0.9", "Protocol": 17, "Source Port": 53, "Destination Port": 40000, "Packet Length": 512}
  ]
}`

func TestCaptureCommandPrintsRowsAndBanner(t *testing.T) {
	resetFlags(t)
	fb := &fakeBackend{capture: func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mixedBatch))
	}}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "capture", "--operator", "alice")
	require.NoError(t, err)

	assert.Equal(t, int32(1), fb.captures.Load())
	assert.Equal(t, "alice", fb.lastUser.Load())
	assert.Contains(t, out, "Suspicious Network Activity Detected!")
	assert.Contains(t, out, "6.6.6.6")
	assert.Contains(t, out, "443 (HTTPS)")
	assert.Contains(t, out, "Normal: 1  Threat: 1  Total: 2")
	assert.Contains(t, out, "Protocols: TCP 1, UDP 1  Threat bytes: 512")
}

func TestCaptureCommandReportsFailure(t *testing.T) {
	resetFlags(t)
	fb := &fakeBackend{capture: func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[0,1],"packet_data":[]}`))
	}}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "capture")
	require.Error(t, err)
	assert.Contains(t, out, "Packet capture failed. Please try again.")
	assert.NotContains(t, out, "Suspicious Network Activity")
}

func TestCaptureCommandFailsOnErrorBodyWithOK(t *testing.T) {
	resetFlags(t)
	fb := &fakeBackend{capture: func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detail":"capture interface not found"}`))
	}}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "capture")
	require.Error(t, err)
	assert.Contains(t, out, "Packet capture failed. Please try again.")
	assert.NotContains(t, out, "Capture finished with no packets.")
}

func TestCaptureCommandWritesReport(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	t.Setenv("FWPANEL_REPORT_DIR", dir)
	fb := &fakeBackend{capture: func(w http.ResponseWriter) {
		_, _ = w.Write([]byte(mixedBatch))
	}}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "capture", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "Report saved to")

	matches, err := filepath.Glob(filepath.Join(dir, "capture_*.html"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "6.6.6.6"))
}

func TestMitigateCommand(t *testing.T) {
	resetFlags(t)
	fb := &fakeBackend{}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "mitigate", "6.6.6.6")
	require.NoError(t, err)
	assert.Contains(t, out, "Packets from 6.6.6.6 have been dropped.")
	assert.Equal(t, "6.6.6.6", fb.lastDropIP.Load())
}

func TestMitigateCommandFailure(t *testing.T) {
	resetFlags(t)
	fb := &fakeBackend{dropStatus: http.StatusInternalServerError}
	newFakeBackend(t, fb)

	out, err := executeCommand(rootCmd, "mitigate", "6.6.6.6")
	require.Error(t, err)
	assert.Contains(t, out, "Failed to drop packets.")
	assert.Equal(t, int32(1), fb.drops.Load())
}

func TestMitigateCommandRequiresAddress(t *testing.T) {
	resetFlags(t)
	newFakeBackend(t, &fakeBackend{})

	_, err := executeCommand(rootCmd, "mitigate")
	require.Error(t, err)
}

func TestRootRejectsMissingConfigFile(t *testing.T) {
	resetFlags(t)
	newFakeBackend(t, &fakeBackend{})

	_, err := executeCommand(rootCmd, "mitigate", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "1.2.3.4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
