// Package network implements an incremental learning-network engine: a
// directed acyclic graph whose leaves are mutable data sources and whose
// vertices are deferred computations, optionally bound to trainable
// machines.
//
// # Why Network Exists
//
// Training pipelines are rarely a single model. A realistic pipeline chains
// transformations and models that feed each other's outputs, and retraining
// everything after every hyperparameter tweak is wasteful. This package
// tracks, per machine, exactly what its last fit depended on, so a Fit
// request retrains only the machines that are actually out of date, in an
// order consistent with the graph.
//
// # Building Blocks
//
//   - Source: a leaf holding a rebindable cty.Value payload. Never stale.
//   - Machine: binds a Model (hyperparameters plus the external fit
//     contract) to the nodes supplying its training data, and owns the
//     cached fit outcome.
//   - Node: a deferred computation. Static nodes apply a plain function to
//     their arguments; dynamic nodes (Predict, Transform, InverseTransform)
//     dispatch through a machine's cached fit result.
//
// Nodes and machines live in arena slices owned by a Graph and are addressed
// by integer IDs. Edges only ever reference IDs created earlier, so a graph
// is acyclic by construction; no cycle detection is needed.
//
// # Call-Time vs Training Edges
//
// A node's arguments are its call-time edges: evaluating the node
// re-evaluates them, every time. A machine's training arguments are a
// separate edge set: they are only evaluated when the machine actually
// retrains. Evaluating a Predict node therefore never re-derives training
// data; it reads the machine's cached result.
//
// # The Tape
//
// Each node carries a tape: the list of its transitive dependencies, through
// both edge kinds, in an order where every node appears after everything it
// depends on. The tape is fixed at construction time. Fit walks the tape's
// machines in order, retraining the stale ones, which yields the ordering
// guarantee: a machine never trains before the machines feeding it.
//
// # Execution Model
//
// A Graph is a synchronous, single-caller structure. Fit trains machines
// strictly sequentially in tape order and performs no locking; coordinating
// concurrent use of a graph is the caller's responsibility. Replace exists
// precisely so the same network can be trained independently on different
// data without sharing mutable state.
package network
