package adapters

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	st := NewMemorySessionStore()
	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	sess, err := st.Create(t0)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, sess.History.Len())
	assert.Equal(t, 1, st.Len())

	got, ok := st.Get(sess.ID, t0.Add(time.Minute))
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.True(t, st.Delete(sess.ID))
	assert.False(t, st.Delete(sess.ID))
	_, ok = st.Get(sess.ID, t0)
	assert.False(t, ok)
}

func TestMemorySessionStoreExpire(t *testing.T) {
	st := NewMemorySessionStore()
	t0 := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	idle, _ := st.Create(t0)
	active, _ := st.Create(t0)
	_, _ = st.Get(active.ID, t0.Add(90*time.Minute))

	removed := st.Expire(t0.Add(60 * time.Minute))
	assert.Equal(t, []string{idle.ID}, removed)
	assert.Equal(t, 1, st.Len())
}

func TestMemorySessionStoreConcurrentCreate(t *testing.T) {
	st := NewMemorySessionStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Create(time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, st.Len())
}

func TestJWTSessionTokensRoundTrip(t *testing.T) {
	tok, err := NewJWTSessionTokens("secret", time.Hour)
	require.NoError(t, err)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	signed, err := tok.Issue("sess-1", now)
	require.NoError(t, err)

	id, err := tok.Parse(signed, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	_, err = tok.Parse(signed, now.Add(2*time.Hour))
	assert.True(t, errors.Is(err, ErrInvalidSessionToken), "expired token")

	other, err := NewJWTSessionTokens("other", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(signed, now)
	assert.True(t, errors.Is(err, ErrInvalidSessionToken), "wrong key")

	_, err = tok.Parse("garbage", now)
	assert.Error(t, err)
}

func TestJWTSessionTokensRandomKey(t *testing.T) {
	a, err := NewJWTSessionTokens("", 0)
	require.NoError(t, err)
	b, err := NewJWTSessionTokens("", 0)
	require.NoError(t, err)

	now := time.Now()
	signed, err := a.Issue("x", now)
	require.NoError(t, err)
	_, err = b.Parse(signed, now)
	assert.Error(t, err)
}
