package network

import (
	"fmt"
	"slices"
)

// Machine binds model to the nodes supplying its training data. Supervised
// models need at least two training arguments (features plus target),
// unsupervised models exactly one.
func (g *Graph) Machine(model Model, training ...NodeID) (MachineID, error) {
	if model == nil {
		return noMachine, fmt.Errorf("machine needs a model")
	}
	if err := checkArity(model.Kind(), len(training)); err != nil {
		return noMachine, err
	}
	for _, id := range training {
		if _, err := g.nodeAt(id); err != nil {
			return noMachine, err
		}
	}
	m := machine{
		id:    MachineID(len(g.machines)),
		model: model,
		args:  slices.Clone(training),
	}
	g.machines = append(g.machines, m)
	return m.id, nil
}

// checkArity validates a training-argument count against a model kind.
func checkArity(kind Kind, n int) error {
	if kind == Supervised {
		if n < 2 {
			return &ArityError{Kind: kind, Got: n}
		}
		return nil
	}
	if n != 1 {
		return &ArityError{Kind: kind, Got: n}
	}
	return nil
}

// Stale reports whether the machine needs retraining: it has never been fit,
// its configuration changed since the last fit, one of its training-argument
// nodes is stale, or an upstream machine has been refit since. Unknown
// machine IDs report false.
func (g *Graph) Stale(id MachineID) bool {
	m, err := g.machineAt(id)
	if err != nil {
		return false
	}
	return g.staleMachine(m)
}

func (g *Graph) staleMachine(m *machine) bool {
	if m.state == 0 {
		return true
	}
	if !m.model.Equal(m.lastConfig) {
		return true
	}
	for _, arg := range m.args {
		if g.staleNode(&g.nodes[arg]) {
			return true
		}
	}
	// The recursive walk above misses upstream machines that were refit and
	// are now fresh again; the state vector snapshot catches those.
	return !slices.Equal(m.upstream, g.upstreamStates(m))
}

// staleNode is the node-level staleness predicate: a source is never stale,
// any other node is stale when its owning machine or any call-time argument
// is stale.
func (g *Graph) staleNode(n *node) bool {
	if n.op == opSource {
		return false
	}
	if n.machine != noMachine && g.staleMachine(&g.machines[n.machine]) {
		return true
	}
	for _, arg := range n.args {
		if g.staleNode(&g.nodes[arg]) {
			return true
		}
	}
	return false
}

// upstreamStates collects the fit counters of every machine reachable
// through the training arguments, in tape order.
func (g *Graph) upstreamStates(m *machine) []int {
	seen := make(map[MachineID]bool)
	var states []int
	for _, arg := range m.args {
		for _, id := range g.nodes[arg].tape {
			if mid := g.nodes[id].machine; mid != noMachine && !seen[mid] {
				seen[mid] = true
				states = append(states, g.machines[mid].state)
			}
		}
	}
	return states
}

// Freeze excludes the machine from retraining until Thaw. A frozen machine
// stays in the graph, so staleness still propagates through it to its
// dependents.
func (g *Graph) Freeze(id MachineID) error {
	m, err := g.machineAt(id)
	if err != nil {
		return err
	}
	m.frozen = true
	return nil
}

// Thaw makes the machine eligible for retraining again.
func (g *Graph) Thaw(id MachineID) error {
	m, err := g.machineAt(id)
	if err != nil {
		return err
	}
	m.frozen = false
	return nil
}

// Frozen reports whether the machine is excluded from retraining.
func (g *Graph) Frozen(id MachineID) bool {
	m, err := g.machineAt(id)
	return err == nil && m.frozen
}

// State returns the machine's monotonic fit counter; 0 means never fit.
func (g *Graph) State(id MachineID) int {
	m, err := g.machineAt(id)
	if err != nil {
		return 0
	}
	return m.state
}

// Model returns the machine's current model.
func (g *Graph) Model(id MachineID) (Model, error) {
	m, err := g.machineAt(id)
	if err != nil {
		return nil, err
	}
	return m.model, nil
}

// SetModel replaces the machine's model, typically to change its
// hyperparameters. The replacement must keep the training kind so the
// existing training arguments stay valid, and must still support every
// operation of the nodes bound to this machine. The machine's cached result
// is left alone; staleness detection picks up the change on the next Fit.
func (g *Graph) SetModel(id MachineID, model Model) error {
	m, err := g.machineAt(id)
	if err != nil {
		return err
	}
	if model == nil {
		return fmt.Errorf("machine needs a model")
	}
	if model.Kind() != m.model.Kind() {
		return fmt.Errorf("cannot change machine %d from %s to %s", id, m.model.Kind(), model.Kind())
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.machine != id {
			continue
		}
		if err := supportsOp(model, n.op); err != nil {
			return fmt.Errorf("node %d: %w", n.id, err)
		}
	}
	m.model = model
	return nil
}

// Outcome returns the machine's cached fit outcome.
func (g *Graph) Outcome(id MachineID) (*FitOutcome, error) {
	m, err := g.machineAt(id)
	if err != nil {
		return nil, err
	}
	if m.state == 0 {
		return nil, &UntrainedError{Machine: id}
	}
	return m.outcome, nil
}
