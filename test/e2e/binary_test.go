package e2e

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// serverProc holds the running server subprocess and its output.
type serverProc struct {
	cmd    *exec.Cmd
	stdout *lockedBuffer
	url    string
	dbPath string
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "batchgate-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "batchgate")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/batchgate")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root")
		}
		dir = parent
	}
}

func startServer(t *testing.T, binary string) *serverProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary, "serve")
	cmd.Env = append(os.Environ(),
		"BATCHGATE_LISTEN_ADDR="+addr,
		"BATCHGATE_DB_PATH="+dbPath,
		"BATCHGATE_LOG_LEVEL=info",
		"BATCHGATE_LOG_FORMAT=json",
		"BATCHGATE_BACKEND_URL=",
		"BATCHGATE_METADATA_PATH=",
	)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	sp := &serverProc{
		cmd:    cmd,
		stdout: stdout,
		url:    "http://" + addr,
		dbPath: dbPath,
	}

	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(sp.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				return sp
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("server did not become ready within %v\nstdout:\n%s", startupTimeout, stdout.String())
	return nil
}

func TestServeHealthz(t *testing.T) {
	sp := startServer(t, getBinary(t))

	resp, err := http.Get(sp.url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["database"] != "ok" {
		t.Errorf("health = %v, want status and database ok", body)
	}
	if body["entities"] != float64(3) {
		t.Errorf("entities = %v, want 3", body["entities"])
	}
}

func TestServeMetrics(t *testing.T) {
	sp := startServer(t, getBinary(t))

	resp, err := http.Get(sp.url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)
	for _, name := range []string{
		"batchgate_http_requests_total",
		"batchgate_http_request_duration_seconds",
		"batchgate_batches_in_flight",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestServeStrictBatchPersists(t *testing.T) {
	sp := startServer(t, getBinary(t))

	payload := `{"mode":"strict","requests":[
		{"entity":"articulo","action":"ADD","payload":{"CodigoA":"1","ISSN":"1234-5678","TituloA":"Uno"}},
		{"entity":"articulo","action":"ADD","payload":{"CodigoA":"2","ISSN":"1234-5678","TituloA":"Dos"}}
	]}`
	resp, err := http.Post(sp.url+"/v1/batches", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/batches: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200\nbody: %s", resp.StatusCode, body)
	}

	var result struct {
		Batch struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Failed int    `json:"failed"`
		} `json:"batch"`
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.OK {
		t.Error("ok = true, want false for duplicate ISSN")
	}
	if result.Batch.Status != "completed" || result.Batch.Failed != 1 {
		t.Errorf("batch = %+v, want completed with 1 failed", result.Batch)
	}
	if len(result.Batch.ID) != 26 {
		t.Errorf("id = %q, expected 26-char ULID", result.Batch.ID)
	}

	if _, err := os.Stat(sp.dbPath); err != nil {
		t.Errorf("database file not created at %s: %v", sp.dbPath, err)
	}

	got, err := http.Get(sp.url + "/v1/batches/" + result.Batch.ID + "/outcomes")
	if err != nil {
		t.Fatalf("GET outcomes: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("outcomes status = %d, want 200", got.StatusCode)
	}
}

func TestServeStructuredLogs(t *testing.T) {
	sp := startServer(t, getBinary(t))

	resp, err := http.Get(sp.url + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	resp.Body.Close()

	var sawStart bool
	for _, line := range strings.Split(sp.stdout.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("non-JSON log line %q: %v", line, err)
		}
		if entry["msg"] == "batchgate: starting" {
			sawStart = true
		}
	}
	if !sawStart {
		t.Errorf("missing startup log line\nstdout:\n%s", sp.stdout.String())
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(t), args...)
	cmd.Env = append(os.Environ(), "BATCHGATE_BACKEND_URL=", "BATCHGATE_METADATA_PATH=")
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.Output()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return string(out), 0
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	default:
		t.Fatalf("run %v: %v", args, err)
		return "", -1
	}
}

func TestCLIRunExitCodes(t *testing.T) {
	valid := `[{"entity":"ubicacion","action":"ADD","payload":{"id_site":"7"}}]`
	missing := `[{"entity":"ubicacion","action":"ADD","payload":{"id_site":"  "}}]`

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  int
	}{
		{"valid strict", valid, []string{"--mode", "strict"}, 0},
		{"valid standard", valid, nil, 0},
		{"missing field", missing, []string{"--mode", "strict"}, 1},
		{"unknown mode", valid, []string{"--mode", "eager"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--file", "-"}, tt.args...)
			out, code := runCLI(t, tt.stdin, args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d\noutput:\n%s", code, tt.want, out)
			}
		})
	}
}
