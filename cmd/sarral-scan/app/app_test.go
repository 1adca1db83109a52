package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
)

// newTestApp isolates the app from the user's token file.
func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("SARRAL_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newTestApp(t)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_WithOptions verifies functional options override loaded values.
func TestApp_WithOptions(t *testing.T) {
	logger := zerolog.Nop()
	config := &Config{APIURL: "http://custom:1234", Format: "yaml"}

	app, err := New("1.0.0", "test", "2024-01-01", "test", WithConfig(config), WithLogger(&logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if app.APIURL() != "http://custom:1234" {
		t.Errorf("APIURL() = %s", app.APIURL())
	}
	if app.OutputFormat() != "yaml" {
		t.Errorf("OutputFormat() = %s, want yaml", app.OutputFormat())
	}
	if app.Logger() != &logger {
		t.Error("Logger() did not return the custom logger")
	}
}

// TestApp_SessionStore_Singleton verifies the session store is shared and
// seeded from the token variable.
func TestApp_SessionStore_Singleton(t *testing.T) {
	t.Setenv("SARRAL_TOKEN", "Bearer from-env")
	app := newTestApp(t)

	const goroutines = 20
	var wg sync.WaitGroup
	stores := make([]credentials.Store, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			stores[idx] = app.SessionStore()
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if stores[i] != stores[0] {
			t.Fatal("SessionStore() returned different instances")
		}
	}

	token, err := stores[0].Credential(context.Background())
	if err != nil {
		t.Fatalf("Credential() failed: %v", err)
	}
	if token != "from-env" {
		t.Errorf("Credential() = %q, want from-env", token)
	}
}

// TestApp_Client verifies configuration reaches the event client.
func TestApp_Client(t *testing.T) {
	t.Setenv("SARRAL_API_URL", "http://backend:9000")
	t.Setenv("SARRAL_EVENTS_POLICY", "allowlist")
	t.Setenv("SARRAL_EVENTS_TYPES", "REPORT_READY")
	app := newTestApp(t)

	c, err := app.Client()
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	if got := c.Endpoint(); got != "http://backend:9000/events/stream" {
		t.Errorf("Endpoint() = %s", got)
	}

	noop := events.Func(func(events.Event) {})
	if err := c.Subscribe("REPORT_READY", noop); err != nil {
		t.Errorf("Subscribe(REPORT_READY) failed: %v", err)
	}
	if err := c.Subscribe("UNDECLARED", noop); !errors.Is(err, errors.ErrUndeclaredType) {
		t.Errorf("Subscribe(UNDECLARED) = %v, want ErrUndeclaredType", err)
	}

	ws, err := app.Client(sarralscan.WithTransport("websocket"))
	if err != nil {
		t.Fatalf("Client(websocket) failed: %v", err)
	}
	if got := ws.Endpoint(); got != "http://backend:9000/events/ws" {
		t.Errorf("Endpoint() = %s", got)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}
	if err := c.Subscribe("REPORT_READY", noop); !errors.Is(err, errors.ErrClosed) {
		t.Errorf("Subscribe after Shutdown = %v, want ErrClosed", err)
	}
}

// TestApp_Client_StreamPath verifies an explicit stream path wins.
func TestApp_Client_StreamPath(t *testing.T) {
	t.Setenv("SARRAL_API_URL", "http://backend:9000")
	t.Setenv("SARRAL_STREAM_PATH", "/api/live")
	app := newTestApp(t)

	c, err := app.Client(sarralscan.WithTransport("websocket"))
	if err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
	defer c.Close()
	if got := c.Endpoint(); got != "http://backend:9000/api/live" {
		t.Errorf("Endpoint() = %s", got)
	}
}

// TestApp_Client_InvalidRetry verifies bad retry settings are rejected.
func TestApp_Client_InvalidRetry(t *testing.T) {
	t.Setenv("SARRAL_RETRY_STRATEGY", "sometimes")
	app := newTestApp(t)

	if _, err := app.Client(); !errors.IsValidationError(err) {
		t.Errorf("Client() error = %v, want validation error", err)
	}
}

// TestApp_Execute_Version verifies the version command output.
func TestApp_Execute_Version(t *testing.T) {
	app := newTestApp(t)

	var out bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--verbose"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !strings.Contains(out.String(), "sarral-scan 1.0.0") {
		t.Errorf("output missing version: %q", out.String())
	}
	if !strings.Contains(out.String(), "commit:   abc123") {
		t.Errorf("output missing commit: %q", out.String())
	}
}

// TestApp_Execute_Commands verifies every command is registered.
func TestApp_Execute_Commands(t *testing.T) {
	app := newTestApp(t)
	root := app.createRootCommand()

	for _, name := range []string{"watch", "serve", "emit", "token", "completion", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
