package network

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// NodeID addresses a node inside its owning Graph.
type NodeID int

// MachineID addresses a machine inside its owning Graph.
type MachineID int

// noMachine marks nodes without an owning machine.
const noMachine MachineID = -1

// opKind is the closed set of node operations.
type opKind int

const (
	opSource opKind = iota
	opStatic
	opPredict
	opTransform
	opInverseTransform
)

func (k opKind) String() string {
	switch k {
	case opSource:
		return "source"
	case opStatic:
		return "static"
	case opPredict:
		return "predict"
	case opTransform:
		return "transform"
	default:
		return "inverse_transform"
	}
}

// node is a single vertex of the graph. Once appended to the arena its edges
// never change; only a source's payload is mutable.
type node struct {
	id      NodeID
	op      opKind
	fn      StaticFn  // opStatic only
	machine MachineID // owning machine, noMachine for sources and statics
	args    []NodeID  // call-time arguments
	origins []NodeID  // distinct sources reachable through call-time edges
	tape    []NodeID  // transitive dependencies in dependency order, self last
	payload cty.Value // opSource only
}

// machine is the mutable training state binding one model to its
// training-argument nodes.
type machine struct {
	id         MachineID
	model      Model
	lastConfig Config // config snapshot taken at the last successful fit
	args       []NodeID
	outcome    *FitOutcome
	frozen     bool
	state      int   // monotonic fit counter, 0 means never fit
	upstream   []int // upstream machine states as of the last successful fit
	lastRows   []int // row selection used by the last successful fit
}

// Graph owns every node and machine of one learning network. Both live in
// arena slices and are addressed by integer IDs; edges only ever point at
// IDs created earlier, so the graph is acyclic by construction.
//
// A Graph is a synchronous, single-caller structure and performs no locking.
type Graph struct {
	nodes    []node
	machines []machine
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// nodeAt bounds-checks a node ID.
func (g *Graph) nodeAt(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return &g.nodes[id], nil
}

// machineAt bounds-checks a machine ID.
func (g *Graph) machineAt(id MachineID) (*machine, error) {
	if id < 0 || int(id) >= len(g.machines) {
		return nil, fmt.Errorf("machine not found: %d", id)
	}
	return &g.machines[id], nil
}

// addNode appends a node to the arena, assigning its ID and deriving its
// tape and origin set from the already-present upstream nodes.
func (g *Graph) addNode(n node) NodeID {
	n.id = NodeID(len(g.nodes))
	n.tape = g.buildTape(&n)
	n.origins = g.buildOrigins(&n)
	g.nodes = append(g.nodes, n)
	return n.id
}

// buildTape merges the tapes of every upstream node in encounter order:
// call-time arguments first, then the owning machine's training arguments,
// then the node itself. Deduplicated by ID, the result is a topological
// ordering: every entry appears after all of its transitive dependencies.
func (g *Graph) buildTape(n *node) []NodeID {
	seen := make(map[NodeID]bool)
	var tape []NodeID
	merge := func(ids []NodeID) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				tape = append(tape, id)
			}
		}
	}
	for _, arg := range n.args {
		merge(g.nodes[arg].tape)
	}
	if n.machine != noMachine {
		for _, arg := range g.machines[n.machine].args {
			merge(g.nodes[arg].tape)
		}
	}
	return append(tape, n.id)
}

// buildOrigins collects the distinct sources reachable through call-time
// edges only. Training edges deliberately do not contribute: a supervised
// target reachable only through training edges must not block evaluating the
// network on new data.
func (g *Graph) buildOrigins(n *node) []NodeID {
	if n.op == opSource {
		return []NodeID{n.id}
	}
	seen := make(map[NodeID]bool)
	var origins []NodeID
	for _, arg := range n.args {
		for _, o := range g.nodes[arg].origins {
			if !seen[o] {
				seen[o] = true
				origins = append(origins, o)
			}
		}
	}
	return origins
}

// Tape returns the node's transitive dependencies in dependency order, the
// node itself last.
func (g *Graph) Tape(id NodeID) ([]NodeID, error) {
	n, err := g.nodeAt(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(n.tape))
	copy(out, n.tape)
	return out, nil
}

// Origins returns the distinct sources reachable from the node through
// call-time edges.
func (g *Graph) Origins(id NodeID) ([]NodeID, error) {
	n, err := g.nodeAt(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(n.origins))
	copy(out, n.origins)
	return out, nil
}

// tapeMachines filters a node's tape down to the machines owning its
// entries, deduplicated in tape order.
func (g *Graph) tapeMachines(n *node) []MachineID {
	seen := make(map[MachineID]bool)
	var ms []MachineID
	for _, id := range n.tape {
		if mid := g.nodes[id].machine; mid != noMachine && !seen[mid] {
			seen[mid] = true
			ms = append(ms, mid)
		}
	}
	return ms
}

// Machines returns the machines participating in the subgraph rooted at the
// given node, in tape order.
func (g *Graph) Machines(id NodeID) ([]MachineID, error) {
	n, err := g.nodeAt(id)
	if err != nil {
		return nil, err
	}
	return g.tapeMachines(n), nil
}
