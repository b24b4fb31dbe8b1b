package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mostwo/mostwo-core/internal/infrastructure/database"
)

// writeConfig writes a minimal config with MQTT and InfluxDB disabled and
// returns its path.
func writeConfig(t *testing.T, port int) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`
database:
  path: %q
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: %d

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

security:
  jwt:
    secret: "test-secret-key-at-least-32-characters-long"
  first_superuser:
    email: "admin@example.com"
    password: "admin-password"
`, filepath.Join(dir, "mostwo.db"), port)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGetConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(configEnvVar, "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv(configEnvVar, "/custom/config.yaml")
		if got := getConfigPath(); got != "/custom/config.yaml" {
			t.Errorf("getConfigPath() = %q, want /custom/config.yaml", got)
		}
	})
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, "/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	configPath := writeConfig(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, configPath) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(url) //nolint:noctx // test
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("health status = %d, want 200", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		select {
		case err := <-done:
			t.Fatalf("run() exited early: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestMigrateCommands(t *testing.T) {
	configPath := writeConfig(t, 8000)

	out, err := execute(t, "--config", configPath, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("status before up = %q, want pending entries", out)
	}

	if out, err = execute(t, "--config", configPath, "migrate", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if !strings.HasPrefix(out, "applied ") {
		t.Errorf("up output = %q", out)
	}

	out, err = execute(t, "--config", configPath, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status: %v", err)
	}
	if strings.Contains(out, "pending") {
		t.Errorf("status after up = %q, want no pending entries", out)
	}

	if out, err = execute(t, "--config", configPath, "migrate", "down"); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if !strings.HasPrefix(out, "rolled back") {
		t.Errorf("down output = %q", out)
	}
}

func TestUserCreate(t *testing.T) {
	configPath := writeConfig(t, 8000)
	args := []string{"--config", configPath, "user", "create", "--email", "ops@example.com", "--password", "long-enough"}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("user create: %v", err)
	}
	if !strings.Contains(out, "ops@example.com") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, args...); err == nil {
		t.Error("duplicate user create succeeded")
	}
	if _, err := execute(t, "--config", configPath, "user", "create", "--email", "x@example.com", "--password", "short"); err == nil {
		t.Error("short password accepted")
	}
}

func TestHealthCheck_DatabaseOnly(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "h.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := healthCheck(ctx, db, nil, nil); err != nil {
		t.Errorf("healthCheck() = %v", err)
	}

	db.Close()
	if err := healthCheck(ctx, db, nil, nil); err == nil {
		t.Error("healthCheck() on closed database = nil, want error")
	}
}
