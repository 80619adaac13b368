package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx-assistant/pkg"
)

func sampleSubmission() *pkg.Submission {
	return &pkg.Submission{
		ID:        "b5a1f0de-6a7c-4c39-9a53-0d3c2b3e9f10",
		SessionID: "session-1",
		Language:  "English",
		Summary:   []pkg.SummaryLine{{Label: "Symptoms: ", Value: "headache, fever"}},
		Result:    &pkg.DiagnosisResult{Text: "Likely viral infection."},
		Model:     "gpt-4o-mini",
		Usage:     &pkg.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		CreatedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "session-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, sampleSubmission()))
	got, err := s.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, sampleSubmission(), got)

	assert.Error(t, s.Put(ctx, &pkg.Submission{}))

	require.NoError(t, s.Delete(ctx, "session-1"))
	_, err = s.Get(ctx, "session-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0, time.Minute))
}

func TestMemoryStoreEvictsExpiredSessions(t *testing.T) {
	s := NewMemoryStore(0, 50*time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		sub := sampleSubmission()
		sub.SessionID = fmt.Sprintf("session-%d", i)
		require.NoError(t, s.Put(ctx, sub))
	}
	require.Equal(t, 1000, s.Len())

	// evicted without ever being read again
	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	_, err := s.Get(ctx, "session-0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsBounded(t *testing.T) {
	s := NewMemoryStore(2, time.Minute)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		sub := sampleSubmission()
		sub.SessionID = id
		require.NoError(t, s.Put(ctx, sub))
	}

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStoreWithClient(client, time.Minute)
	exerciseStore(t, s)

	require.NoError(t, s.Put(context.Background(), sampleSubmission()))
	mr.FastForward(2 * time.Minute)
	_, err := s.Get(context.Background(), "session-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.NoError(t, s.Ping(context.Background()))

	_, err = NewRedisStore(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
