package main

import (
	"bytes"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/example/room-reservations/internal/config"
)

// syncBuffer serializes writes from the server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func testLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}

// writeEnvFile writes a dotenv file and makes sure the variables it sets are
// restored when the test ends.
func writeEnvFile(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvLogLevel, "")
	if err := os.Unsetenv(config.EnvLogLevel); err != nil {
		t.Fatalf("unset %s: %v", config.EnvLogLevel, err)
	}
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(config.EnvLogLevel+"=warn\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
