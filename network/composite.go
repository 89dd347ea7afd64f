package network

import (
	"context"
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

// Field names one tunable sub-model of a composite.
type Field struct {
	Name  string
	Model Model
}

// Composite turns a learning network into a reusable model. The graph it
// was built from acts as a read-only blueprint: every Fit clones the
// blueprint via Replace, binding fresh training data to the designated
// sources and the current field models to the blueprint's machines, then
// runs the scheduler over the clone.
//
// Composite implements Model and Predictor, so a composite nests inside
// another network like any other model.
type Composite struct {
	blueprint *Graph
	terminal  NodeID
	sources   []NodeID
	defaults  []Model // blueprint-bound models, the Replace keys
	fields    []Field // current per-field models
	kind      Kind
}

// NewComposite builds a composite model from the network rooted at
// terminal. sources designates the training-data entry points, in
// training-argument order; one source makes the composite unsupervised, two
// or more make it supervised. Each field's Model must be the exact value
// bound into one of the blueprint's machines.
func NewComposite(g *Graph, terminal NodeID, sources []NodeID, fields ...Field) (*Composite, error) {
	n, err := g.nodeAt(terminal)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("composite needs at least one designated source")
	}

	inTape := make(map[NodeID]bool, len(n.tape))
	for _, id := range n.tape {
		inTape[id] = true
	}
	for _, src := range sources {
		if !inTape[src] || g.nodes[src].op != opSource {
			return nil, &MissingSourceError{Source: src}
		}
	}
	tapeModels := make(map[Model]bool)
	for _, mid := range g.tapeMachines(n) {
		tapeModels[g.machines[mid].model] = true
	}
	names := make(map[string]bool, len(fields))
	defaults := make([]Model, len(fields))
	current := make([]Field, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("composite field %d needs a name", i)
		}
		if names[f.Name] {
			return nil, fmt.Errorf("duplicate composite field %q", f.Name)
		}
		names[f.Name] = true
		if !tapeModels[f.Model] {
			return nil, &MissingModelError{Model: f.Model}
		}
		defaults[i] = f.Model
		current[i] = f
	}

	kind := Unsupervised
	if len(sources) >= 2 {
		kind = Supervised
	}
	return &Composite{
		blueprint: g,
		terminal:  terminal,
		sources:   slices.Clone(sources),
		defaults:  defaults,
		fields:    current,
		kind:      kind,
	}, nil
}

// Kind derives from the number of designated sources.
func (c *Composite) Kind() Kind {
	return c.kind
}

// Equal compares two composites field by field.
func (c *Composite) Equal(other Config) bool {
	o, ok := other.(*Composite)
	if !ok || len(o.fields) != len(c.fields) {
		return false
	}
	for i := range c.fields {
		if c.fields[i].Name != o.fields[i].Name {
			return false
		}
		if !c.fields[i].Model.Equal(o.fields[i].Model) {
			return false
		}
	}
	return true
}

// Clone copies the field models. The blueprint graph is shared: it is only
// ever read, never fit in place.
func (c *Composite) Clone() Config {
	fields := make([]Field, len(c.fields))
	for i, f := range c.fields {
		fields[i] = Field{Name: f.Name, Model: mustModel(f.Model.Clone())}
	}
	return &Composite{
		blueprint: c.blueprint,
		terminal:  c.terminal,
		sources:   slices.Clone(c.sources),
		defaults:  slices.Clone(c.defaults),
		fields:    fields,
		kind:      c.kind,
	}
}

// Field returns the named sub-model.
func (c *Composite) Field(name string) (Model, error) {
	for _, f := range c.fields {
		if f.Name == name {
			return f.Model, nil
		}
	}
	return nil, fmt.Errorf("composite has no field %q", name)
}

// SetField replaces the named sub-model. The replacement must keep the
// blueprint model's kind so the underlying machine's training arguments
// stay valid.
func (c *Composite) SetField(name string, m Model) error {
	if m == nil {
		return fmt.Errorf("composite field %q needs a model", name)
	}
	for i := range c.fields {
		if c.fields[i].Name != name {
			continue
		}
		if m.Kind() != c.defaults[i].Kind() {
			return fmt.Errorf("field %q is %s, cannot set a %s model", name, c.defaults[i].Kind(), m.Kind())
		}
		c.fields[i].Model = m
		return nil
	}
	return fmt.Errorf("composite has no field %q", name)
}

// Fit instantiates the blueprint on the given training data and brings the
// instance fully up to date. The returned outcome carries the trained
// *Instance as both result and cache, and the member machines' reports in
// tape order as report.
//
// The instance comes back anonymized: its designated sources are detached
// from the training payloads, so the instance holds no training data. Call
// Instance.Reattach before refitting the instance graph in place.
func (c *Composite) Fit(ctx context.Context, verbosity int, training ...cty.Value) (*FitOutcome, error) {
	if len(training) != len(c.sources) {
		return nil, &ArityError{Kind: c.kind, Got: len(training)}
	}

	subs := make([]Substitution, 0, len(c.sources)+len(c.fields))
	for i, src := range c.sources {
		subs = append(subs, WithSource(src, training[i]))
	}
	for i, f := range c.fields {
		// Each instance trains its own copy of the field models, so two
		// instances of one composite never share mutable state.
		subs = append(subs, WithModel(c.defaults[i], mustModel(f.Model.Clone())))
	}

	g, nodeMap, err := c.blueprint.replace(ctx, c.terminal, subs)
	if err != nil {
		return nil, err
	}
	terminal := nodeMap[c.terminal]
	if err := g.Fit(ctx, terminal, FitOptions{Verbosity: verbosity}); err != nil {
		return nil, err
	}

	inst := &Instance{graph: g, terminal: terminal}
	inst.sources = make([]NodeID, len(c.sources))
	for i, src := range c.sources {
		inst.sources[i] = nodeMap[src]
	}
	inst.detach()

	return &FitOutcome{Result: inst, Cache: inst, Report: g.reports(terminal)}, nil
}

// Predict implements Predictor: result is the *Instance a Fit produced.
func (c *Composite) Predict(ctx context.Context, result any, input cty.Value) (cty.Value, error) {
	inst, ok := result.(*Instance)
	if !ok {
		return cty.NilVal, fmt.Errorf("composite predict needs an *Instance result, got %T", result)
	}
	return inst.Apply(ctx, input)
}

// Instance is one trained instantiation of a composite blueprint.
type Instance struct {
	graph    *Graph
	terminal NodeID
	sources  []NodeID
}

// Graph exposes the instance's own network.
func (inst *Instance) Graph() *Graph {
	return inst.graph
}

// Terminal is the instance counterpart of the blueprint's terminal node.
func (inst *Instance) Terminal() NodeID {
	return inst.terminal
}

// Apply scores new input through the trained instance.
func (inst *Instance) Apply(ctx context.Context, input cty.Value) (cty.Value, error) {
	return inst.graph.EvaluateOn(ctx, inst.terminal, input)
}

// detach drops the designated sources' payloads so the instance does not
// hold on to its training data.
func (inst *Instance) detach() {
	for _, src := range inst.sources {
		inst.graph.nodes[src].payload = cty.NilVal
	}
}

// Reattach restores training payloads, in designated-source order, ahead of
// an in-place refit of the instance graph.
func (inst *Instance) Reattach(payloads ...cty.Value) error {
	if len(payloads) != len(inst.sources) {
		return fmt.Errorf("instance has %d sources, got %d payloads", len(inst.sources), len(payloads))
	}
	for i, src := range inst.sources {
		if err := inst.graph.Rebind(src, payloads[i]); err != nil {
			return err
		}
	}
	return nil
}

// reports gathers the cached reports of the subgraph's machines in tape
// order, skipping machines without one.
func (g *Graph) reports(terminal NodeID) []any {
	n := &g.nodes[terminal]
	var out []any
	for _, mid := range g.tapeMachines(n) {
		if m := &g.machines[mid]; m.outcome != nil && m.outcome.Report != nil {
			out = append(out, m.outcome.Report)
		}
	}
	return out
}

// mustModel narrows a cloned Config back to Model. The Config contract
// requires a Model's Clone to return a Model, so a failure here is a bug in
// the model implementation.
func mustModel(c Config) Model {
	m, ok := c.(Model)
	if !ok {
		panic(fmt.Sprintf("Clone of a Model returned %T, which is not a Model", c))
	}
	return m
}
