package network

import (
	"context"
	"slices"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fitgrid/internal/ctxlog"
)

// Substitution maps one leaf of a network to its replacement during Replace:
// either a source to new payload, or a model to a new model.
type Substitution struct {
	source   NodeID
	payload  cty.Value
	oldModel Model
	newModel Model
	isSource bool
}

// WithSource substitutes payload for the source node src in the clone.
func WithSource(src NodeID, payload cty.Value) Substitution {
	return Substitution{source: src, payload: payload, isSource: true}
}

// WithModel substitutes replacement for every machine bound to old in the
// clone. Models are matched by identity, so old must be the exact value the
// machine was built with (another reason models should be pointers).
func WithModel(old, replacement Model) Substitution {
	return Substitution{oldModel: old, newModel: replacement}
}

// Replace deep-clones the subgraph rooted at terminal into a fresh Graph,
// applying the given substitutions, and returns the clone together with
// terminal's counterpart inside it. The clone is structurally isomorphic to
// the original and fully independent of it: unsubstituted models are cloned,
// and a machine shared by several nodes stays one machine in the clone.
//
// A source that is not explicitly substituted keeps its payload in the
// clone, silently duplicating that data across both graphs; a warn-level
// notice is logged when this happens. Machines whose model was substituted
// start untrained; all others carry their trained state over, so an
// unchanged clone evaluates without retraining.
func (g *Graph) Replace(ctx context.Context, terminal NodeID, subs ...Substitution) (*Graph, NodeID, error) {
	clone, nodeMap, err := g.replace(ctx, terminal, subs)
	if err != nil {
		return nil, -1, err
	}
	return clone, nodeMap[terminal], nil
}

// replace is the clone walk behind Replace, additionally exposing the full
// old-ID to new-ID node mapping for callers that track designated nodes
// through the clone.
func (g *Graph) replace(ctx context.Context, terminal NodeID, subs []Substitution) (*Graph, map[NodeID]NodeID, error) {
	logger := ctxlog.FromContext(ctx)
	n, err := g.nodeAt(terminal)
	if err != nil {
		return nil, nil, err
	}

	inTape := make(map[NodeID]bool, len(n.tape))
	for _, id := range n.tape {
		inTape[id] = true
	}
	tapeModels := make(map[Model]bool)
	for _, mid := range g.tapeMachines(n) {
		tapeModels[g.machines[mid].model] = true
	}

	sourceSubs := make(map[NodeID]cty.Value)
	modelSubs := make(map[Model]Model)
	for _, s := range subs {
		if s.isSource {
			if !inTape[s.source] || g.nodes[s.source].op != opSource {
				return nil, nil, &MissingSourceError{Source: s.source}
			}
			sourceSubs[s.source] = s.payload
			continue
		}
		if !tapeModels[s.oldModel] {
			return nil, nil, &MissingModelError{Model: s.oldModel}
		}
		modelSubs[s.oldModel] = s.newModel
	}

	clone := New()
	nodeMap := make(map[NodeID]NodeID, len(n.tape))
	machMap := make(map[MachineID]MachineID)

	// The tape is already topological, so by the time any node is cloned
	// all of its call-time and training dependencies have new IDs.
	for _, id := range n.tape {
		old := &g.nodes[id]
		if old.op == opSource {
			payload, ok := sourceSubs[id]
			if !ok {
				payload = old.payload
				logger.Warn("Source not substituted, duplicating its data into the clone.", "source", id)
			}
			nodeMap[id] = clone.Source(payload)
			continue
		}

		mid := noMachine
		if old.machine != noMachine {
			mid = g.cloneMachine(clone, old.machine, nodeMap, machMap, modelSubs)
		}
		args := make([]NodeID, len(old.args))
		for i, a := range old.args {
			args[i] = nodeMap[a]
		}
		nodeMap[id] = clone.addNode(node{op: old.op, fn: old.fn, machine: mid, args: args})
	}
	return clone, nodeMap, nil
}

// cloneMachine copies one machine into the clone arena, reusing the existing
// copy when the machine was already reached through another bound node.
func (g *Graph) cloneMachine(clone *Graph, id MachineID, nodeMap map[NodeID]NodeID, machMap map[MachineID]MachineID, modelSubs map[Model]Model) MachineID {
	if newID, ok := machMap[id]; ok {
		return newID
	}
	om := &g.machines[id]
	args := make([]NodeID, len(om.args))
	for i, a := range om.args {
		args[i] = nodeMap[a]
	}
	nm := machine{
		id:     MachineID(len(clone.machines)),
		args:   args,
		frozen: om.frozen,
	}
	if repl, ok := modelSubs[om.model]; ok {
		// The cached result belongs to the old configuration, so a machine
		// with a substituted model starts untrained.
		nm.model = repl
	} else {
		nm.model = mustModel(om.model.Clone())
		nm.lastConfig = om.lastConfig
		nm.outcome = om.outcome
		nm.state = om.state
		nm.upstream = slices.Clone(om.upstream)
		nm.lastRows = slices.Clone(om.lastRows)
	}
	clone.machines = append(clone.machines, nm)
	machMap[id] = nm.id
	return nm.id
}
