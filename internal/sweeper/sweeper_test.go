package sweeper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kosench/shortlinks/internal/config"
	"github.com/Kosench/shortlinks/internal/database"
	"github.com/Kosench/shortlinks/internal/model"
	"github.com/Kosench/shortlinks/internal/repository"
)

const ttl = 24 * time.Hour

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, dialect, err := database.Connect(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return repository.NewStore(db, dialect)
}

func insert(t *testing.T, store *repository.Store, code string, expiresAt time.Time, active bool) {
	t.Helper()
	require.NoError(t, store.Links.Create(context.Background(), &model.Link{
		ShortCode:   code,
		OriginalURL: "https://example.com/" + code,
		CreatedAt:   expiresAt.Add(-ttl),
		ExpiresAt:   expiresAt,
		IsActive:    active,
	}))
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	insert(t, store, "expired", now.Add(-time.Second), true)
	insert(t, store, "stale", now.Add(-ttl-time.Second), false)
	insert(t, store, "grace", now.Add(-time.Hour), false)
	insert(t, store, "fresh", now.Add(time.Hour), true)

	s := New(store.Reclaimer, time.Hour, ttl, zerolog.New(io.Discard), WithClock(func() time.Time { return now }))

	res, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Deactivated: 1, Deleted: 1}, res)

	link, err := store.Links.GetByShortCode(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, link.IsActive)

	_, err = store.Links.GetByShortCode(ctx, "stale")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	link, err = store.Links.GetByShortCode(ctx, "grace")
	require.NoError(t, err)
	assert.False(t, link.IsActive)

	link, err = store.Links.GetByShortCode(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, link.IsActive)

	// повторный проход ничего не меняет
	res, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSweepOnce_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	s := New(store.Reclaimer, time.Hour, ttl, zerolog.New(io.Discard))

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

type fakeReclaimer struct {
	mu        sync.Mutex
	calls     int
	failOn    map[int]error
	panicOn   map[int]bool
	purgedFor []time.Time
}

func (f *fakeReclaimer) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.panicOn[f.calls] {
		panic("driver exploded")
	}
	if err := f.failOn[f.calls]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *fakeReclaimer) PurgeInactive(ctx context.Context, expiredBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.purgedFor = append(f.purgedFor, expiredBefore)
	return 2, nil
}

func (f *fakeReclaimer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSweepOnce_UsesRetentionWindow(t *testing.T) {
	fake := &fakeReclaimer{}
	s := New(fake, time.Hour, 72*time.Hour, zerolog.New(io.Discard), WithClock(func() time.Time { return now }))

	res, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Deactivated: 1, Deleted: 2}, res)
	require.Len(t, fake.purgedFor, 1)
	assert.True(t, fake.purgedFor[0].Equal(now.Add(-72*time.Hour)))
}

func TestSweepOnce_DeactivateError(t *testing.T) {
	fake := &fakeReclaimer{failOn: map[int]error{1: errors.New("database is locked")}}
	s := New(fake, time.Hour, ttl, zerolog.New(io.Discard))

	_, err := s.SweepOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, fake.purgedFor, "purge must not run after a failed deactivation")
}

func TestRun_SurvivesFailuresAndPanics(t *testing.T) {
	fake := &fakeReclaimer{
		failOn:  map[int]error{1: errors.New("connection reset")},
		panicOn: map[int]bool{2: true},
	}

	var buf safeBuffer
	s := New(fake, 10*time.Millisecond, ttl, zerolog.New(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.Calls() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	logs := buf.String()
	assert.Contains(t, logs, "sweep failed")
	assert.Contains(t, logs, "sweep panicked")
	assert.Contains(t, logs, "sweep completed")
}

func TestRun_SweepsImmediately(t *testing.T) {
	fake := &fakeReclaimer{}
	s := New(fake, time.Hour, ttl, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	var returned atomic.Bool
	go func() {
		_ = s.Run(ctx)
		returned.Store(true)
	}()

	require.Eventually(t, func() bool { return fake.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, returned.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, fake.Calls())
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
