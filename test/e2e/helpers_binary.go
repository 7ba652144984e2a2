//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// keepsakeServer manages a running keepsake server process.
type keepsakeServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	config  string
	logFile *os.File
}

// startKeepsake launches the binary against a config rooted in dataDir and
// waits for it to become healthy. Passing the same dataDir twice restarts a
// server over existing state.
func startKeepsake(t *testing.T, dataDir string) *keepsakeServer {
	t.Helper()

	if keepsakeBin == "" {
		t.Skip("keepsake binary not available (set KEEPSAKE_BIN or add to PATH)")
	}

	port := freePort(t)
	cfgPath := filepath.Join(dataDir, "keepsake.yaml")
	cfg := fmt.Sprintf(`server:
  port: %[2]d
data:
  document_path: %[1]s/db.json
  music_path: %[1]s/music.json
  session_db_path: %[1]s/sessions.db
uploads:
  gallery_dir: %[1]s/uploads
  photos_dir: %[1]s/memory_photos
log:
  format: json
`, dataDir, port)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	lf, err := os.OpenFile(filepath.Join(dataDir, "keepsake.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}

	cmd := exec.Command(keepsakeBin, "--config", cfgPath)
	cmd.Stdout = lf
	cmd.Stderr = lf
	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start keepsake: %v", err)
	}

	s := &keepsakeServer{
		cmd:     cmd,
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		config:  cfgPath,
		logFile: lf,
	}
	t.Cleanup(s.stop)

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("keepsake not healthy: %v", err)
	}
	return s
}

// stop interrupts the server and waits for the graceful shutdown to finish.
// It is safe to call more than once.
func (s *keepsakeServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
	s.logFile.Close()
}

func (s *keepsakeServer) baseURL() string {
	return "http://" + s.address
}

func (s *keepsakeServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/api/v1/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("keepsake not healthy after %s", timeout)
}

// client returns an HTTP client with its own cookie jar, so each client
// holds an independent session.
func (s *keepsakeServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		// Unauthenticated responses carry a Location header that must not be followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// login signs the client in and fails the test unless it succeeds.
func (s *keepsakeServer) login(t *testing.T, c *http.Client, username, password string) {
	t.Helper()
	body := map[string]string{"username": username, "password": password}
	if status, raw := s.do(t, c, http.MethodPost, "/api/v1/login", body, nil); status != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, status, raw)
	}
}

// do sends a JSON request and decodes a JSON response into out when given.
func (s *keepsakeServer) do(t *testing.T, c *http.Client, method, path string, body, out any) (int, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.baseURL()+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s: %v: %s", method, path, err, raw)
		}
	}
	return resp.StatusCode, raw
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
