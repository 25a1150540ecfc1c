package core

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, []byte("test-session-key")), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestRedisStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Get(req, "s")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	sess.Values["username"] = "bob"
	sess.Values["account_id"] = int64(7)
	sess.Values["must_change_password"] = true

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))
	require.NotEmpty(t, sess.ID)
	assert.True(t, mr.Exists(sessionKeyPrefix+sess.ID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotContains(t, cookies[0].Value, "bob", "values stay server-side")

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	loaded, err := store.Get(req2, "s")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "bob", loaded.Values["username"])
	assert.Equal(t, int64(7), loaded.Values["account_id"])
	assert.Equal(t, true, loaded.Values["must_change_password"])
}

func TestRedisStoreDelete(t *testing.T) {
	store, mr := newTestRedisStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Get(req, "s")
	require.NoError(t, err)
	sess.Values["username"] = "bob"
	require.NoError(t, sess.Save(req, httptest.NewRecorder()))
	id := sess.ID

	sess.Options.MaxAge = -1
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))
	assert.False(t, mr.Exists(sessionKeyPrefix+id))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestRedisStoreRejectsTamperedCookie(t *testing.T) {
	store, _ := newTestRedisStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "s", Value: "forged"})
	sess, err := store.Get(req, "s")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	assert.Empty(t, sess.ID)
}

func TestRedisStoreExpiredSession(t *testing.T) {
	store, mr := newTestRedisStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Get(req, "s")
	require.NoError(t, err)
	sess.Values["username"] = "bob"
	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(req, rec))

	mr.FastForward(2 * time.Hour)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(rec.Result().Cookies()[0])
	loaded, err := store.Get(req2, "s")
	require.NoError(t, err)
	assert.True(t, loaded.IsNew)
	assert.Nil(t, loaded.Values["username"])
}
