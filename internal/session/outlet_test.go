package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdesk/mealdesk-console/internal/session"
	_ "github.com/mealdesk/mealdesk-console/testing"
)

func newPrefs(t *testing.T) (*session.RedisOutletPrefs, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewOutletPrefs(client, "sess-1", time.Hour), mr
}

func TestOutletPrefsRoundTrip(t *testing.T) {
	prefs, _ := newPrefs(t)
	ctx := context.Background()

	_, ok := prefs.Load(ctx)
	assert.False(t, ok)

	require.NoError(t, prefs.Save(ctx, 7))
	id, ok := prefs.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	require.NoError(t, prefs.Clear(ctx))
	_, ok = prefs.Load(ctx)
	assert.False(t, ok)
}

func TestOutletPrefsScopedPerSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	first := session.NewOutletPrefs(client, "sess-1", time.Hour)
	second := session.NewOutletPrefs(client, "sess-2", time.Hour)

	require.NoError(t, first.Save(ctx, 5))
	_, ok := second.Load(ctx)
	assert.False(t, ok)
}

func TestOutletPrefsIgnoresGarbageValue(t *testing.T) {
	prefs, mr := newPrefs(t)
	require.NoError(t, mr.Set("outlet_pref:sess-1", "not-a-number"))

	_, ok := prefs.Load(context.Background())
	assert.False(t, ok)
}

func TestOutletPrefsExpire(t *testing.T) {
	prefs, mr := newPrefs(t)
	ctx := context.Background()

	require.NoError(t, prefs.Save(ctx, 7))
	mr.FastForward(2 * time.Hour)

	_, ok := prefs.Load(ctx)
	assert.False(t, ok)
}

func TestOutletPrefsClearWithoutValue(t *testing.T) {
	prefs, _ := newPrefs(t)
	assert.NoError(t, prefs.Clear(context.Background()))
}
