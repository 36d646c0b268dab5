package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/config"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"--config", "reservations.yaml", "--env-file=prod.env", "-p", "9191"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if f.configFile != "reservations.yaml" || f.envFile != "prod.env" || f.port != 9191 {
		t.Fatalf("unexpected flags %#v", f)
	}

	if _, err := parseFlags([]string{"--unknown"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestLoadConfig_PortFlagWins(t *testing.T) {
	t.Setenv(config.EnvHTTPPort, "8081")
	t.Setenv(config.EnvStoreDriver, "memory")

	cfg, err := loadConfig(flags{port: 9999})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Fatalf("expected flag port, got %d", cfg.HTTPPort)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite file is created with schema", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Store.DSN = filepath.Join(t.TempDir(), "reservations.db")

		store, err := openStore(ctx, cfg)
		if err != nil {
			t.Fatalf("openStore failed: %v", err)
		}
		defer store.Close()

		if err := store.Ping(ctx); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
		if _, err := os.Stat(cfg.Store.DSN); err != nil {
			t.Fatalf("expected database file: %v", err)
		}
		if rooms, err := store.ListRooms(ctx); err != nil || len(rooms) != 0 {
			t.Fatalf("ListRooms = %v, %v", rooms, err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Store.Driver = "oracle"
		if _, err := openStore(ctx, cfg); err == nil {
			t.Fatal("expected error for unknown driver")
		}
	})
}

func TestNewHandler_EndToEnd(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Driver = config.DriverMemory
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer store.Close()

	var logs syncBuffer
	logger := testLogger(&logs)
	server := httptest.NewServer(newHandler(cfg, store, logger))
	defer server.Close()

	post := func(path, body string) map[string]any {
		t.Helper()
		resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("expected X-Request-ID on %s", path)
		}
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		out["status"] = float64(resp.StatusCode)
		return out
	}

	room := post("/rooms", `{"name":"Sala Andes","capacity":6}`)
	employee := post("/employees", `{"first_name":"Ana","last_name":"Pérez","email":"ana@example.com"}`)
	if room["status"] != float64(http.StatusCreated) || employee["status"] != float64(http.StatusCreated) {
		t.Fatalf("seed failed: %v %v", room, employee)
	}

	reservation := `{"room_id":1,"employee_id":1,"date":"2025-01-10","start_time":"09:00","end_time":"10:00"}`
	if got := post("/reservations", reservation); got["status"] != float64(http.StatusCreated) {
		t.Fatalf("expected reservation created, got %v", got)
	}
	got := post("/reservations", reservation)
	if got["status"] != float64(http.StatusBadRequest) || got["error_code"] != "RESERVATION_CONFLICT" {
		t.Fatalf("expected conflict, got %v", got)
	}

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy store, got %d", resp.StatusCode)
	}

	if !strings.Contains(logs.String(), "reservation created") {
		t.Fatalf("expected service logs, got %q", logs.String())
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Setenv(config.EnvStoreDriver, "memory")
	t.Setenv(config.EnvLogFormat, "text")

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{"--port", strconv.Itoa(freePort(t)), "--env-file", writeEnvFile(t)}
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, args, &out)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
		if strings.Contains(out.String(), "reservations API listening") {
			t.Fatalf("info logs should be filtered by the env file level, got %q", out.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
