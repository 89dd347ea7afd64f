package network

import "fmt"

// ArityError reports a machine or composite built with a training-argument
// count inconsistent with its model's kind.
type ArityError struct {
	Kind Kind
	Got  int
}

func (e *ArityError) Error() string {
	if e.Kind == Supervised {
		return fmt.Sprintf("supervised model needs at least 2 training arguments, got %d", e.Got)
	}
	return fmt.Sprintf("unsupervised model needs exactly 1 training argument, got %d", e.Got)
}

// EmptyArgsError reports a static node built with no arguments.
type EmptyArgsError struct{}

func (e *EmptyArgsError) Error() string {
	return "static node needs at least one argument"
}

// UntrainedError reports an evaluation routed through a machine that has
// never completed a fit. Run Fit on a downstream node first.
type UntrainedError struct {
	Machine MachineID
}

func (e *UntrainedError) Error() string {
	return fmt.Sprintf("machine %d has never been fit", e.Machine)
}

// MultipleOriginsError reports an attempt to evaluate a node on new data
// when the node does not have exactly one origin source. The node remains
// evaluable against its own training-time sources.
type MultipleOriginsError struct {
	Node    NodeID
	Origins int
}

func (e *MultipleOriginsError) Error() string {
	return fmt.Sprintf("node %d reaches %d origin sources; evaluating on new data needs exactly one", e.Node, e.Origins)
}

// MissingSourceError reports a source substitution whose key does not appear
// in the subgraph being cloned.
type MissingSourceError struct {
	Source NodeID
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source %d does not appear in the subgraph", e.Source)
}

// MissingModelError reports a model substitution whose key is not bound to
// any machine in the subgraph being cloned.
type MissingModelError struct {
	Model Model
}

func (e *MissingModelError) Error() string {
	return fmt.Sprintf("model %T does not appear in the subgraph", e.Model)
}
