package credentials_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reddy-bhavesh/sarral-scan/pkg/credentials"
	pkgerrors "github.com/reddy-bhavesh/sarral-scan/pkg/errors"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "abc", credentials.Normalize("  Bearer abc\n"))
	assert.Equal(t, "abc", credentials.Normalize("bearer abc"))
	assert.Equal(t, "abc", credentials.Normalize("abc"))
	assert.Equal(t, "", credentials.Normalize("Bearer   "))
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	store, err := credentials.NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Credential(ctx)
		assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)
	})

	t.Run("save and read", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "Bearer eyJ.token"))
		token, err := store.Credential(ctx)
		require.NoError(t, err)
		assert.Equal(t, "eyJ.token", token)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("empty token rejected", func(t *testing.T) {
		assert.True(t, pkgerrors.IsValidationError(store.Save(ctx, "  ")))
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))
		_, err := store.Credential(ctx)
		assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)
	})

	t.Run("blank file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))
		_, err := store.Credential(ctx)
		assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Credential(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := credentials.NewMemoryStore()

	_, err := s.Credential(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)

	require.NoError(t, s.Save(ctx, "session-token"))
	token, err := s.Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-token", token)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Credential(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)
}

func TestMemoryStoreFromEnv(t *testing.T) {
	t.Setenv("SARRAL_TEST_TOKEN", "Bearer from-env")
	token, err := credentials.NewMemoryStoreFromEnv("SARRAL_TEST_TOKEN").Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)
}

func TestChainPrefersDurable(t *testing.T) {
	ctx := context.Background()
	durable := credentials.NewMemoryStore()
	session := credentials.NewMemoryStore()
	chain := credentials.Chain{durable, nil, session}

	_, err := chain.Credential(ctx)
	assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)

	require.NoError(t, session.Save(ctx, "session"))
	token, _ := chain.Credential(ctx)
	assert.Equal(t, "session", token)

	require.NoError(t, durable.Save(ctx, "durable"))
	token, _ = chain.Credential(ctx)
	assert.Equal(t, "durable", token)
}

func TestChainStopsOnHardError(t *testing.T) {
	boom := errors.New("keychain locked")
	chain := credentials.Chain{
		credentials.SourceFunc(func(context.Context) (string, error) { return "", boom }),
		credentials.Static("never"),
	}
	_, err := chain.Credential(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestForScope(t *testing.T) {
	durable := credentials.NewMemoryStore()
	session := credentials.NewMemoryStore()
	assert.Same(t, durable, credentials.ForScope(true, durable, session))
	assert.Same(t, session, credentials.ForScope(false, durable, session))
}

func TestStatic(t *testing.T) {
	token, err := credentials.Static("abc").Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = credentials.Static("").Credential(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrNoCredential)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := credentials.ExpandPath("~/.sarral-scan/token")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sarral-scan", "token"), got)

	got, err = credentials.ExpandPath("/etc/token")
	require.NoError(t, err)
	assert.Equal(t, "/etc/token", got)
}
