package network_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fitgrid/dataset"
	"github.com/vk/fitgrid/internal/ctxlog"
	"github.com/vk/fitgrid/network"
	"github.com/vk/fitgrid/params"
)

// testCtx returns a context whose logger swallows engine diagnostics.
func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

// fitTrace records, through the context, which models were fit and in what
// order.
type fitTrace struct {
	names []string
}

type traceKey struct{}

func withTrace(ctx context.Context) (context.Context, *fitTrace) {
	tr := &fitTrace{}
	return context.WithValue(ctx, traceKey{}, tr), tr
}

func recordFit(ctx context.Context, name string) {
	if tr, ok := ctx.Value(traceKey{}).(*fitTrace); ok {
		tr.names = append(tr.names, name)
	}
}

// meanModel is a supervised model predicting the training target's mean,
// shifted by Bias, for every input row.
type meanModel struct {
	Name string
	Bias float64
}

func (m *meanModel) Kind() network.Kind { return network.Supervised }

func (m *meanModel) Equal(other network.Config) bool { return params.Equal(m, other) }

func (m *meanModel) Clone() network.Config {
	c := *m
	return &c
}

func (m *meanModel) Fit(ctx context.Context, verbosity int, training ...cty.Value) (*network.FitOutcome, error) {
	recordFit(ctx, m.Name)
	ys, err := dataset.AsFloats(training[len(training)-1])
	if err != nil {
		return nil, err
	}
	if len(ys) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	var sum float64
	for _, y := range ys {
		sum += y
	}
	mean := sum/float64(len(ys)) + m.Bias
	return &network.FitOutcome{
		Result: mean,
		Report: fmt.Sprintf("%s: trained on %d rows", m.Name, len(ys)),
	}, nil
}

func (m *meanModel) Predict(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	n, err := dataset.Length(input)
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = result.(float64)
	}
	return dataset.Floats(out), nil
}

// centerModel is an unsupervised transformer that subtracts the training
// mean and adds Offset.
type centerModel struct {
	Name   string
	Offset float64
}

func (m *centerModel) Kind() network.Kind { return network.Unsupervised }

func (m *centerModel) Equal(other network.Config) bool { return params.Equal(m, other) }

func (m *centerModel) Clone() network.Config {
	c := *m
	return &c
}

func (m *centerModel) Fit(ctx context.Context, verbosity int, training ...cty.Value) (*network.FitOutcome, error) {
	recordFit(ctx, m.Name)
	xs, err := dataset.AsFloats(training[0])
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return &network.FitOutcome{
		Result: sum / float64(len(xs)),
		Report: fmt.Sprintf("%s: centered %d rows", m.Name, len(xs)),
	}, nil
}

func (m *centerModel) Transform(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	return m.shift(input, -result.(float64)+m.Offset)
}

func (m *centerModel) InverseTransform(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	return m.shift(input, result.(float64)-m.Offset)
}

func (m *centerModel) shift(input cty.Value, delta float64) (cty.Value, error) {
	xs, err := dataset.AsFloats(input)
	if err != nil {
		return cty.NilVal, err
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x + delta
	}
	return dataset.Floats(out), nil
}

// flakyModel fails its fit on demand; its transform is the identity.
type flakyModel struct {
	Name string
	Fail bool
}

func (m *flakyModel) Kind() network.Kind { return network.Unsupervised }

func (m *flakyModel) Equal(other network.Config) bool { return params.Equal(m, other) }

func (m *flakyModel) Clone() network.Config {
	c := *m
	return &c
}

func (m *flakyModel) Fit(ctx context.Context, verbosity int, training ...cty.Value) (*network.FitOutcome, error) {
	recordFit(ctx, m.Name)
	if m.Fail {
		return nil, errors.New("synthetic fit failure")
	}
	n, err := dataset.Length(training[0])
	if err != nil {
		return nil, err
	}
	return &network.FitOutcome{Result: n}, nil
}

func (m *flakyModel) Transform(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	return input, nil
}

func (m *flakyModel) InverseTransform(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	return input, nil
}

// pipeline is the standard two-stage test network: center the features,
// then predict the target mean from the centered features.
type pipeline struct {
	g      *network.Graph
	xs, ys network.NodeID
	center *centerModel
	mean   *meanModel
	cmach  network.MachineID
	mmach  network.MachineID
	w, p   network.NodeID
}

func buildPipeline(t *testing.T, x, y []float64) *pipeline {
	t.Helper()
	g := network.New()
	xs := g.Source(dataset.Floats(x))
	ys := g.Source(dataset.Floats(y))

	center := &centerModel{Name: "center"}
	cmach, err := g.Machine(center, xs)
	require.NoError(t, err)
	w, err := g.Transform(cmach, xs)
	require.NoError(t, err)

	mean := &meanModel{Name: "mean"}
	mmach, err := g.Machine(mean, w, ys)
	require.NoError(t, err)
	p, err := g.Predict(mmach, w)
	require.NoError(t, err)

	return &pipeline{
		g: g, xs: xs, ys: ys,
		center: center, mean: mean,
		cmach: cmach, mmach: mmach,
		w: w, p: p,
	}
}
