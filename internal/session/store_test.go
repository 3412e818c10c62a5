package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory stand-in for the shared Redis tier.
type fakeRemote struct {
	data map[string][]byte
	down bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string][]byte{}}
}

func (f *fakeRemote) Available() bool { return !f.down }

func (f *fakeRemote) GetJSON(_ context.Context, key string, out any) bool {
	raw, ok := f.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (f *fakeRemote) SetJSON(_ context.Context, key string, value any, _ time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	f.data[key] = raw
	return true
}

func (f *fakeRemote) Del(_ context.Context, key string) bool {
	delete(f.data, key)
	return true
}

func sessionFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestGet_FallbackOrder(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.SetJSON(ctx, "dmagent:session", Session{AuthToken: "remote-tok", AccountID: "1"}, 0)

	store := NewStore(remote, Session{AuthToken: "env-tok", AccountID: "2"}, sessionFile(t))

	// Remote wins over a valid env pair.
	sess, src, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, "remote-tok", sess.AuthToken)

	// Remote gone: env is next.
	remote.Del(ctx, "dmagent:session")
	sess, src, ok = store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceEnv, src)
	assert.Equal(t, "env-tok", sess.AuthToken)
}

func TestGet_FileTierAndMiss(t *testing.T) {
	ctx := context.Background()
	path := sessionFile(t)
	store := NewStore(nil, Session{}, path)

	_, src, ok := store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, SourceNone, src)

	require.NoError(t, os.WriteFile(path, []byte(`{"auth_token":"file-tok","account_id":"9"}`), 0600))
	sess, src, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceFile, src)
	assert.Equal(t, "file-tok", sess.AuthToken)
	assert.Equal(t, "9", sess.AccountID)
}

func TestSet_WritesFileAndReplicates(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	path := sessionFile(t)
	store := NewStore(remote, Session{}, path)

	fresh := Session{AuthToken: "Bearer IGT:2:new", AccountID: "42"}
	require.NoError(t, store.Set(ctx, fresh))

	var onDisk Session
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, fresh, onDisk)

	var replicated Session
	assert.True(t, remote.GetJSON(ctx, "dmagent:session", &replicated))
	assert.Equal(t, fresh, replicated)
}

func TestSet_RemoteDownIsBestEffort(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.down = true
	store := NewStore(remote, Session{}, sessionFile(t))

	assert.NoError(t, store.Set(ctx, Session{AuthToken: "t", AccountID: "1"}))
}

func TestInvalidate_ClearsFileAndRemoteNotEnv(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	path := sessionFile(t)
	env := Session{AuthToken: "env-tok", AccountID: "2"}
	store := NewStore(remote, env, path)

	require.NoError(t, store.Set(ctx, Session{AuthToken: "stale", AccountID: "1"}))
	store.Invalidate(ctx)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Env tier still answers after invalidation.
	sess, src, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceEnv, src)
	assert.Equal(t, "env-tok", sess.AuthToken)
}
