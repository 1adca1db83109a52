package serve

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func get(url string) (int, string) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRunServesAndSimulates(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.Heartbeat = 0
	base := "http://" + cfg.Addr()

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, &appcontext.Mock{}, cfg, &Options{
			Simulate:         true,
			SimulateUser:     "alice",
			SimulateInterval: time.Millisecond,
		}, out)
	}()

	require.Eventually(t, func() bool {
		status, _ := get(base + "/health")
		return status == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, body := get(base + "/metrics")
		return strings.Contains(body, "sarral_scan_simulator_scans_total")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	// a random secret was generated, so a token is printed
	assert.Contains(t, out.String(), "token for alice")
	assert.Contains(t, out.String(), "Dev stream server stopped")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.StreamPath = "events"
	err := Run(context.Background(), &appcontext.Mock{}, cfg, &Options{SimulateUser: "demo"}, io.Discard)
	assert.Error(t, err)
}

func TestMergeFlags(t *testing.T) {
	base := server.DefaultConfig()
	base.JWTSecret = "from-config"
	base.Port = 9100

	flags := server.DefaultConfig()
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().IntVar(&flags.Port, "port", flags.Port, "")
	cmd.Flags().IntVar(&flags.RateLimit, "rate-limit", flags.RateLimit, "")
	cmd.Flags().StringVar(&flags.JWTSecret, "jwt-secret", flags.JWTSecret, "")
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9200", "--rate-limit", "0"}))

	merged := mergeFlags(cmd, base, flags)
	assert.Equal(t, 9200, merged.Port)
	assert.Equal(t, 0, merged.RateLimit)
	assert.Equal(t, "from-config", merged.JWTSecret)
	assert.Equal(t, base.Host, merged.Host)
}

func TestNewCommandFlags(t *testing.T) {
	cmd := NewCommand(&appcontext.Mock{})
	for _, name := range []string{"host", "port", "jwt-secret", "simulate", "simulate-user", "print-token"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "demo", cmd.Flags().Lookup("simulate-user").DefValue)
}
