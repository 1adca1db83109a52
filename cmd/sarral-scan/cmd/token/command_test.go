package token

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/internal/appcontext"
	"github.com/reddy-bhavesh/sarral-scan/internal/server"
	"github.com/reddy-bhavesh/sarral-scan/internal/server/auth"
	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

func newMock(t *testing.T, format string) (*appcontext.Mock, *credentials.FileStore) {
	t.Helper()
	fs, err := credentials.NewFileStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, err)
	return &appcontext.Mock{
		Format:         format,
		TokenStoreFunc: func() (credentials.Store, error) { return fs, nil },
		ServerConfigFunc: func() server.Config {
			cfg := server.DefaultConfig()
			cfg.JWTSecret = "dev-secret"
			return cfg
		},
	}, fs
}

func run(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIssuePrintsSessionToken(t *testing.T) {
	app, fs := newMock(t, "")
	out, err := run(t, app, "issue", "--user", "alice")
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	issuer, err := auth.NewIssuer("dev-secret", time.Hour)
	require.NoError(t, err)
	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	stored, err := app.SessionStore().Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, stored)

	_, err = fs.Credential(context.Background())
	assert.True(t, errors.IsNoCredential(err))
}

func TestIssueRemember(t *testing.T) {
	app, fs := newMock(t, "json")
	out, err := run(t, app, "issue", "--user", "bob", "--remember", "--ttl", "1h")
	require.NoError(t, err)

	var res Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "bob", res.User)
	assert.Equal(t, fs.Path(), res.Stored)
	assert.Empty(t, res.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	_, err = fs.Credential(context.Background())
	require.NoError(t, err)

	out, err = run(t, app, "status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.Stored)
	assert.Equal(t, "bob", st.User)
	assert.False(t, st.Expired)

	out, err = run(t, app, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Token removed")
	_, err = fs.Credential(context.Background())
	assert.True(t, errors.IsNoCredential(err))
}

func TestIssueRequiresSecret(t *testing.T) {
	app, _ := newMock(t, "")
	app.ServerConfigFunc = server.DefaultConfig
	_, err := run(t, app, "issue", "--user", "alice")
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestIssueRequiresUser(t *testing.T) {
	app, _ := newMock(t, "")
	_, err := run(t, app, "issue")
	assert.Error(t, err)
}

func TestStatusWithoutToken(t *testing.T) {
	app, _ := newMock(t, "")
	out, err := run(t, app, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No token stored")
}
