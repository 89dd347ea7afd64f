package network

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// StaticFn is the operation of a static node, applied to the evaluated
// call-time arguments on every evaluation.
type StaticFn func(args ...cty.Value) (cty.Value, error)

// Static adds a node applying fn to the given argument nodes. At least one
// argument is required; a static node with nothing upstream would be a
// constant masquerading as a computation, which is what Source is for.
func (g *Graph) Static(fn StaticFn, args ...NodeID) (NodeID, error) {
	if len(args) == 0 {
		return -1, &EmptyArgsError{}
	}
	if fn == nil {
		return -1, fmt.Errorf("static node needs a function")
	}
	for _, id := range args {
		if _, err := g.nodeAt(id); err != nil {
			return -1, err
		}
	}
	return g.addNode(node{op: opStatic, fn: fn, machine: noMachine, args: slices.Clone(args)}), nil
}

// Predict adds a node scoring input through the machine's cached fit result.
// The machine's model must implement Predictor.
func (g *Graph) Predict(m MachineID, input NodeID) (NodeID, error) {
	return g.dynamic(opPredict, m, input)
}

// Transform adds a node rewriting input through the machine's cached fit
// result. The machine's model must implement Transformer.
func (g *Graph) Transform(m MachineID, input NodeID) (NodeID, error) {
	return g.dynamic(opTransform, m, input)
}

// InverseTransform adds a node reversing the machine's transformation on
// input. The machine's model must implement Transformer.
func (g *Graph) InverseTransform(m MachineID, input NodeID) (NodeID, error) {
	return g.dynamic(opInverseTransform, m, input)
}

// dynamic adds a machine-bound node after checking that the model supports
// the requested operation, so evaluation never hits a failed type assertion.
func (g *Graph) dynamic(op opKind, m MachineID, input NodeID) (NodeID, error) {
	mach, err := g.machineAt(m)
	if err != nil {
		return -1, err
	}
	if _, err := g.nodeAt(input); err != nil {
		return -1, err
	}
	if err := supportsOp(mach.model, op); err != nil {
		return -1, err
	}
	return g.addNode(node{op: op, machine: m, args: []NodeID{input}}), nil
}

// supportsOp checks a model against one dynamic operation.
func supportsOp(m Model, op opKind) error {
	switch op {
	case opPredict:
		if _, ok := m.(Predictor); !ok {
			return fmt.Errorf("model %T does not implement Predictor", m)
		}
	case opTransform, opInverseTransform:
		if _, ok := m.(Transformer); !ok {
			return fmt.Errorf("model %T does not implement Transformer", m)
		}
	}
	return nil
}
