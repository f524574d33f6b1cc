package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/logger"
	"github.com/castlemilk/demobank/internal/store"
	"github.com/castlemilk/demobank/internal/synth"
)

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

// countingSynth returns a synthesizer that draws a new seed per call and
// counts invocations.
func countingSynth(t *testing.T) (Synthesizer, *int) {
	t.Helper()
	calls := 0
	return func() (*bank.Dataset, error) {
		calls++
		return synth.Generate(synth.Options{Seed: int64(calls), Now: fixedNow})
	}, &calls
}

func mustJSON(t *testing.T, ds *bank.Dataset) string {
	t.Helper()
	raw, err := json.Marshal(ds)
	require.NoError(t, err)
	return string(raw)
}

func TestLoadFirstRunThenCacheHit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	gen, calls := countingSynth(t)
	c := New(s, gen)

	first, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, first.FirstRun)
	assert.False(t, first.FromCache)
	require.NotNil(t, first.Dataset)

	flag, err := s.Get(ctx, KeyInitialized)
	require.NoError(t, err)
	assert.Equal(t, "true", string(flag))

	second, err := c.Load(ctx)
	require.NoError(t, err)
	assert.False(t, second.FirstRun)
	assert.True(t, second.FromCache)

	third, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, mustJSON(t, second.Dataset), mustJSON(t, third.Dataset))
	assert.Equal(t, mustJSON(t, first.Dataset), mustJSON(t, second.Dataset))
	assert.Equal(t, 1, *calls)
}

func TestRefreshThenLoadReturnsRefreshedDataset(t *testing.T) {
	ctx := context.Background()
	gen, calls := countingSynth(t)
	c := New(store.NewMemoryStore(), gen)

	original, err := c.Load(ctx)
	require.NoError(t, err)

	refreshed, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, original.Dataset.Seed, refreshed.Seed)

	loaded, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.FromCache)
	assert.False(t, loaded.FirstRun)
	assert.Equal(t, mustJSON(t, refreshed), mustJSON(t, loaded.Dataset))
	assert.Equal(t, 2, *calls)
}

func TestClearEvictsWithoutSynthesizing(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	gen, calls := countingSynth(t)
	c := New(s, gen)

	_, err := c.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 1, *calls)
	_, err = s.Get(ctx, KeyDataset)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Cleared is not the same as never initialized.
	res, err := c.Load(ctx)
	require.NoError(t, err)
	assert.False(t, res.FirstRun)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, *calls)
}

func TestLoadRecoversFromCorruptCache(t *testing.T) {
	valid, err := json.Marshal(envelope{Meta: meta{Version: envelopeVersion + 1}, Dataset: bank.NewDataset(1, fixedNow)})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "not json", payload: []byte("{{{ definitely not json")},
		{name: "binary garbage", payload: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "wrong envelope version", payload: valid},
		{name: "missing dataset", payload: []byte(`{"_meta":{"version":1}}`)},
		{name: "dataset breaking invariants", payload: []byte(`{"_meta":{"version":1},"dataset":{"version":1,"users":[],"accounts":[{"id":"a1","userId":"ghost"}]}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewMemoryStore()
			require.NoError(t, s.Set(ctx, KeyInitialized, []byte("true")))
			require.NoError(t, s.Set(ctx, KeyDataset, tt.payload))

			buf := &bytes.Buffer{}
			gen, calls := countingSynth(t)
			c := New(s, gen, WithLogger(logger.NewWithWriter(buf)))

			res, err := c.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, res.Dataset)
			require.NoError(t, bank.Validate(res.Dataset))
			assert.False(t, res.FromCache)
			assert.False(t, res.FirstRun)
			assert.Equal(t, 1, *calls)
			assert.Contains(t, buf.String(), string(ErrCacheRead))

			// The corrupt payload was replaced by the fresh dataset.
			again, err := c.Load(ctx)
			require.NoError(t, err)
			assert.True(t, again.FromCache)
		})
	}
}

func TestLoadRecoversFromCorruptSnapshotFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demobank.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := store.NewFileStore(path)
	require.NoError(t, err)
	gen, calls := countingSynth(t)
	c := New(s, gen)

	first, err := c.Load(ctx)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.False(t, second.FirstRun)
	assert.Equal(t, first.Dataset.Seed, second.Dataset.Seed)
	assert.Equal(t, 1, *calls)
}

func TestLoadSurvivesWriteFailures(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(store.WithQuota(64))
	buf := &bytes.Buffer{}
	gen, calls := countingSynth(t)
	c := New(s, gen, WithLogger(logger.NewWithWriter(buf)))

	res, err := c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Dataset)
	assert.True(t, res.FirstRun)
	assert.Contains(t, buf.String(), string(ErrCacheWrite))
	assert.Contains(t, buf.String(), "quota exceeded")

	// Nothing was cached, but the small flag fit, so the next load resynthesizes
	// without replaying first run.
	next, err := c.Load(ctx)
	require.NoError(t, err)
	assert.False(t, next.FromCache)
	assert.False(t, next.FirstRun)
	assert.Equal(t, 2, *calls)
}

func TestLoadReturnsSynthesisErrors(t *testing.T) {
	boom := errors.New("boom")
	c := New(store.NewMemoryStore(), func() (*bank.Dataset, error) { return nil, boom })

	res, err := c.Load(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, res.Dataset)
	assert.True(t, res.FirstRun)

	_, err = c.Refresh(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestLoadWithFailingStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := store.NewMockStore(ctrl)
	unavailable := errors.New("backend unavailable")

	mockStore.EXPECT().Get(gomock.Any(), KeyInitialized).Return(nil, unavailable)
	mockStore.EXPECT().Get(gomock.Any(), KeyDataset).Return(nil, unavailable)
	mockStore.EXPECT().Set(gomock.Any(), KeyDataset, gomock.Any()).Return(unavailable)
	mockStore.EXPECT().Set(gomock.Any(), KeyInitialized, []byte("true")).Return(unavailable)

	buf := &bytes.Buffer{}
	gen, _ := countingSynth(t)
	c := New(mockStore, gen, WithLogger(logger.NewWithWriter(buf)))

	res, err := c.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Dataset)
	assert.False(t, res.FirstRun, "an unreadable flag must not replay onboarding")
	assert.Contains(t, buf.String(), "backend unavailable")
}

func TestClearReportsEvictFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := store.NewMockStore(ctrl)
	mockStore.EXPECT().Delete(gomock.Any(), KeyDataset).Return(errors.New("permission denied"))

	c := New(mockStore, nil)
	err := c.Clear(context.Background())

	var cerr *CacheError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrCacheWrite, cerr.Code)
	assert.Equal(t, KeyDataset, cerr.Key)
}

func TestEnvelopeIsStamped(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	gen, _ := countingSynth(t)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := New(s, gen, WithClock(func() time.Time { return stamp }))

	_, err := c.Load(ctx)
	require.NoError(t, err)

	raw, err := s.Get(ctx, KeyDataset)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, envelopeVersion, env.Meta.Version)
	assert.Equal(t, "demobank_cache", env.Meta.Storage)
	assert.True(t, stamp.Equal(env.Meta.Timestamp))
}
