package network

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Kind classifies a model by the shape of training data it expects.
type Kind int

const (
	// Unsupervised models train on exactly one data argument.
	Unsupervised Kind = iota
	// Supervised models train on features plus at least one target.
	Supervised
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Supervised:
		return "supervised"
	default:
		return "unsupervised"
	}
}

// Config is the hyperparameter container of a trainable unit. The engine
// treats it as opaque and only asks for its training kind, value equality
// (staleness detection), and a deep copy (network cloning).
//
// Implementations should be pointer types: Replace matches models by
// identity, and a Model's Clone must return a Model.
type Config interface {
	Kind() Kind
	Equal(other Config) bool
	Clone() Config
}

// FitOutcome is what a model produces from one successful fit: the fitted
// result consumed by apply operations, an opaque cache blob, and a report.
// All three are owned by the machine that triggered the fit and are treated
// as immutable once stored.
type FitOutcome struct {
	Result any
	Cache  any
	Report any
}

// Model couples a Config with the external fit contract. Fit must behave as
// a pure function of the configuration and the training data, up to internal
// randomness, and must not mutate the training values.
type Model interface {
	Config
	Fit(ctx context.Context, verbosity int, training ...cty.Value) (*FitOutcome, error)
}

// Predictor is implemented by models whose fitted result can score new data.
// result is the Result of the owning machine's cached FitOutcome.
type Predictor interface {
	Predict(ctx context.Context, result any, input cty.Value) (cty.Value, error)
}

// Transformer is implemented by models whose fitted result rewrites data and
// can reverse that rewrite.
type Transformer interface {
	Transform(ctx context.Context, result any, input cty.Value) (cty.Value, error)
	InverseTransform(ctx context.Context, result any, input cty.Value) (cty.Value, error)
}
