package network

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Source adds a leaf node wrapping payload. Sources are the only nodes whose
// value is stored rather than computed, and they are never stale.
func (g *Graph) Source(payload cty.Value) NodeID {
	return g.addNode(node{op: opSource, machine: noMachine, payload: payload})
}

// Rebind swaps the source's payload in place, preserving its identity.
// Rebinding does not invalidate any dependent machine's cached result: a
// source is never stale, so a caller whose data changed meaning must pass
// Force on the next Fit.
func (g *Graph) Rebind(src NodeID, payload cty.Value) error {
	n, err := g.nodeAt(src)
	if err != nil {
		return err
	}
	if n.op != opSource {
		return fmt.Errorf("node %d is a %s node, not a source", src, n.op)
	}
	n.payload = payload
	return nil
}

// IsSource reports whether the node is a source leaf.
func (g *Graph) IsSource(id NodeID) bool {
	n, err := g.nodeAt(id)
	return err == nil && n.op == opSource
}

// Payload returns a source's current payload.
func (g *Graph) Payload(src NodeID) (cty.Value, error) {
	n, err := g.nodeAt(src)
	if err != nil {
		return cty.NilVal, err
	}
	if n.op != opSource {
		return cty.NilVal, fmt.Errorf("node %d is a %s node, not a source", src, n.op)
	}
	return n.payload, nil
}
