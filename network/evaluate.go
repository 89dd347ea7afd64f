package network

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fitgrid/dataset"
)

// Evaluate resolves the node against the full training data, recursively
// evaluating its call-time arguments. Dynamic nodes read their machine's
// cached fit result and return an UntrainedError if the machine has never
// been fit.
func (g *Graph) Evaluate(ctx context.Context, id NodeID) (cty.Value, error) {
	return g.EvaluateRows(ctx, id, nil)
}

// EvaluateRows is Evaluate with a row selection applied to every source the
// node reads. A nil selection means all rows.
func (g *Graph) EvaluateRows(ctx context.Context, id NodeID, rows []int) (cty.Value, error) {
	if _, err := g.nodeAt(id); err != nil {
		return cty.NilVal, err
	}
	return g.eval(ctx, id, rows, nil)
}

// EvaluateOn resolves the node against brand-new data, substituting input
// for the node's unique origin source. Training data is never re-derived:
// every machine result stays exactly as the last Fit left it.
func (g *Graph) EvaluateOn(ctx context.Context, id NodeID, input cty.Value) (cty.Value, error) {
	n, err := g.nodeAt(id)
	if err != nil {
		return cty.NilVal, err
	}
	if len(n.origins) != 1 {
		return cty.NilVal, &MultipleOriginsError{Node: id, Origins: len(n.origins)}
	}
	return g.eval(ctx, id, nil, map[NodeID]cty.Value{n.origins[0]: input})
}

// eval is the shared evaluation walk. subs maps source IDs to replacement
// values for the evaluate-on-new-data path.
func (g *Graph) eval(ctx context.Context, id NodeID, rows []int, subs map[NodeID]cty.Value) (cty.Value, error) {
	n := &g.nodes[id]
	if n.op == opSource {
		if v, ok := subs[id]; ok {
			// Replacement data is handed back as-is; row selection only
			// applies to the source's own payload.
			return v, nil
		}
		return dataset.Rows(n.payload, rows)
	}
	args := make([]cty.Value, len(n.args))
	for i, arg := range n.args {
		v, err := g.eval(ctx, arg, rows, subs)
		if err != nil {
			return cty.NilVal, err
		}
		args[i] = v
	}
	if n.op == opStatic {
		return n.fn(args...)
	}
	m := &g.machines[n.machine]
	if m.state == 0 {
		return cty.NilVal, &UntrainedError{Machine: n.machine}
	}
	switch n.op {
	case opPredict:
		return m.model.(Predictor).Predict(ctx, m.outcome.Result, args[0])
	case opTransform:
		return m.model.(Transformer).Transform(ctx, m.outcome.Result, args[0])
	default:
		return m.model.(Transformer).InverseTransform(ctx, m.outcome.Result, args[0])
	}
}
