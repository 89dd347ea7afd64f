package network_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/fitgrid/dataset"
	"github.com/vk/fitgrid/internal/ctxlog"
	"github.com/vk/fitgrid/network"
)

func TestReplaceMissingKeys(t *testing.T) {
	ctx := testCtx()
	p := buildPipeline(t, []float64{1, 2, 3}, []float64{4, 5, 6})

	t.Run("source outside the subgraph", func(t *testing.T) {
		stray := p.g.Source(dataset.Floats([]float64{0}))
		_, _, err := p.g.Replace(ctx, p.p, network.WithSource(stray, dataset.Floats([]float64{1})))
		var missing *network.MissingSourceError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, stray, missing.Source)
	})

	t.Run("non-source node as a source key", func(t *testing.T) {
		_, _, err := p.g.Replace(ctx, p.p, network.WithSource(p.w, dataset.Floats([]float64{1})))
		var missing *network.MissingSourceError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("model not bound in the subgraph", func(t *testing.T) {
		_, _, err := p.g.Replace(ctx, p.p, network.WithModel(&meanModel{Name: "other"}, &meanModel{Name: "new"}))
		var missing *network.MissingModelError
		require.ErrorAs(t, err, &missing)
	})
}

func TestReplaceClonesIndependently(t *testing.T) {
	ctx := testCtx()
	p := buildPipeline(t, []float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, p.g.Fit(ctx, p.p, network.FitOptions{}))

	newMean := &meanModel{Name: "mean"}
	clone, terminal, err := p.g.Replace(ctx, p.p,
		network.WithSource(p.xs, dataset.Floats([]float64{10, 20, 30})),
		network.WithSource(p.ys, dataset.Floats([]float64{100, 200, 300})),
		network.WithModel(p.mean, newMean),
	)
	require.NoError(t, err)

	cloneMachines, err := clone.Machines(terminal)
	require.NoError(t, err)
	require.Len(t, cloneMachines, 2)
	cloneCenter, cloneMean := cloneMachines[0], cloneMachines[1]

	t.Run("substituted model starts untrained", func(t *testing.T) {
		assert.Equal(t, 0, clone.State(cloneMean))
		assert.True(t, clone.Stale(cloneMean))
	})

	t.Run("unsubstituted machine carries its trained state", func(t *testing.T) {
		assert.Equal(t, 1, clone.State(cloneCenter))
	})

	t.Run("training the clone leaves the original alone", func(t *testing.T) {
		require.NoError(t, clone.Fit(ctx, terminal, network.FitOptions{Force: true}))

		got, err := clone.Evaluate(ctx, terminal)
		require.NoError(t, err)
		vals, err := dataset.AsFloats(got)
		require.NoError(t, err)
		assert.InDelta(t, 200.0, vals[0], 1e-9)

		// Original still answers from its own training data.
		orig, err := p.g.Evaluate(ctx, p.p)
		require.NoError(t, err)
		origVals, err := dataset.AsFloats(orig)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, origVals[0], 1e-9)
		assert.Equal(t, 1, p.g.State(p.mmach))
	})
}

func TestReplaceKeepsSharedMachines(t *testing.T) {
	ctx := testCtx()
	g := network.New()
	xs := g.Source(dataset.Floats([]float64{1, 2, 3}))
	center := &centerModel{Name: "center"}
	m, err := g.Machine(center, xs)
	require.NoError(t, err)
	w, err := g.Transform(m, xs)
	require.NoError(t, err)
	// Round-trip through the same machine: two nodes, one machine.
	back, err := g.InverseTransform(m, w)
	require.NoError(t, err)

	clone, terminal, err := g.Replace(ctx, back, network.WithSource(xs, dataset.Floats([]float64{4, 5, 6})))
	require.NoError(t, err)

	ms, err := clone.Machines(terminal)
	require.NoError(t, err)
	assert.Len(t, ms, 1)

	ctx2, trace := withTrace(ctx)
	require.NoError(t, clone.Fit(ctx2, terminal, network.FitOptions{Force: true}))
	assert.Equal(t, []string{"center"}, trace.names)

	got, err := clone.Evaluate(ctx, terminal)
	require.NoError(t, err)
	vals, err := dataset.AsFloats(got)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, vals)
}

func TestReplaceWarnsOnUnsubstitutedSource(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	p := buildPipeline(t, []float64{1, 2, 3}, []float64{4, 5, 6})
	_, _, err := p.g.Replace(ctx, p.p, network.WithSource(p.xs, dataset.Floats([]float64{9, 9, 9})))
	require.NoError(t, err)

	// ys was not substituted, so its data is silently shared with the
	// clone; that is reported, not fatal.
	assert.Contains(t, buf.String(), "duplicating its data")
}
