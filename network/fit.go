package network

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/fitgrid/internal/ctxlog"
)

// FitOptions configures a Fit or FitMachine call.
type FitOptions struct {
	// Rows restricts training to the given row indices of every source. Nil
	// means all rows. A machine also retrains when the selection differs
	// from the one used by its last fit.
	Rows []int

	// Force retrains machines regardless of staleness. Frozen machines are
	// still skipped.
	Force bool

	// Verbosity is forwarded to every model fit and controls how loudly
	// already-up-to-date machines are reported: at 1 and above skips log at
	// info level, below that at debug level.
	Verbosity int
}

// Fit brings every machine upstream of terminal up to date, training stale
// ones in tape order. It is a pull scheduler: only machines reachable from
// terminal are considered, and a machine whose state is unchanged is never
// retrained. The terminal node itself is returned to the caller untouched;
// subsequent Evaluate calls resolve through the refreshed machine results.
func (g *Graph) Fit(ctx context.Context, terminal NodeID, opts FitOptions) error {
	logger := ctxlog.FromContext(ctx)
	n, err := g.nodeAt(terminal)
	if err != nil {
		return err
	}
	for _, id := range g.tapeMachines(n) {
		// The frozen check also lives inside FitMachine; the scheduler
		// skips early anyway so a frozen machine never shows up in skip
		// reporting as merely "up to date".
		if g.machines[id].frozen {
			logger.Debug("Machine is frozen, skipping.", "machine", id)
			continue
		}
		refit, err := g.FitMachine(ctx, id, opts)
		if err != nil {
			return err
		}
		if !refit {
			logSkip(logger, opts.Verbosity, "Machine not retrained, already up to date.", "machine", id)
		}
	}
	return nil
}

// FitMachine is the retraining primitive. It refits the machine when forced,
// stale, or handed a different row selection than its previous fit, and
// reports whether any work was done. Frozen machines never retrain. A failed
// model fit leaves the previously cached outcome untouched.
func (g *Graph) FitMachine(ctx context.Context, id MachineID, opts FitOptions) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	m, err := g.machineAt(id)
	if err != nil {
		return false, err
	}
	if m.frozen {
		logger.Debug("Machine is frozen, not retraining.", "machine", id)
		return false, nil
	}
	if !opts.Force && !g.staleMachine(m) && sameRows(opts.Rows, m.lastRows) {
		return false, nil
	}

	training := make([]cty.Value, len(m.args))
	for i, arg := range m.args {
		v, err := g.eval(ctx, arg, opts.Rows, nil)
		if err != nil {
			return false, fmt.Errorf("evaluating training argument %d of machine %d: %w", i, id, err)
		}
		training[i] = v
	}

	outcome, err := m.model.Fit(ctx, opts.Verbosity, training...)
	if err != nil {
		return false, fmt.Errorf("fitting machine %d: %w", id, err)
	}
	if outcome == nil {
		return false, fmt.Errorf("fitting machine %d: model %T returned no outcome", id, m.model)
	}

	m.outcome = outcome
	m.lastConfig = m.model.Clone()
	m.upstream = g.upstreamStates(m)
	m.lastRows = slices.Clone(opts.Rows)
	m.state++
	logger.Debug("Machine fit complete.", "machine", id, "state", m.state)
	return true, nil
}

// sameRows reports whether two row selections are the same. A nil selection
// means all rows while an empty one means none, so the two never match.
func sameRows(a, b []int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return slices.Equal(a, b)
}

// logSkip reports a non-fatal scheduling decision at a verbosity-dependent
// level.
func logSkip(logger *slog.Logger, verbosity int, msg string, args ...any) {
	if verbosity >= 1 {
		logger.Info(msg, args...)
		return
	}
	logger.Debug(msg, args...)
}
