package params

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Errors returned by parameter validation.
var (
	ErrUnknownPrior      = errors.New("params: unknown prior family")
	ErrUnknownConstraint = errors.New("params: unknown constraint")
	ErrBadHyper          = errors.New("params: invalid prior hyperparameters")
	ErrEmptyName         = errors.New("params: empty parameter name")
)

// PriorFamily selects the sampling distribution of a fitted parameter.
type PriorFamily int

const (
	// PriorNone leaves the parameter without a prior contribution.
	PriorNone PriorFamily = iota
	// PriorUniform is flat between Hyper1 and Hyper2.
	PriorUniform
	// PriorNormal is Gaussian with mean Hyper1 and stddev Hyper2.
	PriorNormal
	// PriorLogUniform is flat in log space between log bounds Hyper1 and
	// Hyper2; the parameter value itself stays in the linear domain.
	PriorLogUniform
)

var priorFamilyNames = [...]string{
	PriorNone:       "none",
	PriorUniform:    "uniform",
	PriorNormal:     "normal",
	PriorLogUniform: "log_uniform",
}

func (f PriorFamily) String() string {
	if f < PriorNone || f > PriorLogUniform {
		return fmt.Sprintf("PriorFamily(%d)", int(f))
	}

	return priorFamilyNames[f]
}

// Constraint restricts the value domain of a parameter independently of its
// prior family.
type Constraint int

const (
	ConstraintNone Constraint = iota
	// ConstraintPositive rejects values at or below zero, for rate-like
	// parameters.
	ConstraintPositive
	// ConstraintMaxInclination bounds the value to (0, 90], for orbital
	// inclinations in degrees.
	ConstraintMaxInclination
)

// Parameter is one named model parameter with its binding and prior.
type Parameter struct {
	Name  string
	Value float64
	Kind  BindingKind
	Prior PriorFamily
	// Hyper1, Hyper2 are the prior hyperparameters: bounds for uniform
	// families, mean and stddev for the normal family.
	Hyper1, Hyper2 float64
	Constraint     Constraint
}

// Validate checks the parameter specification. It is called by
// Registry.Add so that misconfiguration surfaces before any evaluation.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}

	if !p.Kind.valid() {
		return fmt.Errorf("%w: parameter %q", ErrUnknownKind, p.Name)
	}

	if p.Prior < PriorNone || p.Prior > PriorLogUniform {
		return fmt.Errorf("%w: parameter %q", ErrUnknownPrior, p.Name)
	}

	if p.Constraint < ConstraintNone || p.Constraint > ConstraintMaxInclination {
		return fmt.Errorf("%w: parameter %q", ErrUnknownConstraint, p.Name)
	}

	switch p.Prior {
	case PriorUniform, PriorLogUniform:
		if p.Hyper2 <= p.Hyper1 {
			return fmt.Errorf("%w: %q bounds (%v, %v)", ErrBadHyper, p.Name, p.Hyper1, p.Hyper2)
		}
	case PriorNormal:
		if p.Hyper2 <= 0 {
			return fmt.Errorf("%w: %q stddev %v", ErrBadHyper, p.Name, p.Hyper2)
		}
	}

	return nil
}

// LogPrior evaluates the log prior density at v. Values violating the
// constraint return -Inf; PriorNone contributes zero.
func (p Parameter) LogPrior(v float64) float64 {
	if !p.allowed(v) {
		return math.Inf(-1)
	}

	switch p.Prior {
	case PriorUniform:
		u := distuv.Uniform{Min: p.Hyper1, Max: p.Hyper2}
		return u.LogProb(v)
	case PriorNormal:
		n := distuv.Normal{Mu: p.Hyper1, Sigma: p.Hyper2}
		return n.LogProb(v)
	case PriorLogUniform:
		if v <= 0 {
			return math.Inf(-1)
		}

		u := distuv.Uniform{Min: p.Hyper1, Max: p.Hyper2}
		// Change of variables from log(v) back to v.
		return u.LogProb(math.Log(v)) - math.Log(v)
	default:
		return 0
	}
}

// Draw samples an initial value from the prior. Parameters without a prior
// return their current value. Constrained draws are redrawn a bounded number
// of times before falling back to the current value.
func (p Parameter) Draw(src rand.Source) float64 {
	const redraws = 100

	for i := 0; i < redraws; i++ {
		var v float64

		switch p.Prior {
		case PriorUniform:
			v = distuv.Uniform{Min: p.Hyper1, Max: p.Hyper2, Src: src}.Rand()
		case PriorNormal:
			v = distuv.Normal{Mu: p.Hyper1, Sigma: p.Hyper2, Src: src}.Rand()
		case PriorLogUniform:
			v = math.Exp(distuv.Uniform{Min: p.Hyper1, Max: p.Hyper2, Src: src}.Rand())
		default:
			return p.Value
		}

		if p.allowed(v) {
			return v
		}
	}

	return p.Value
}

func (p Parameter) allowed(v float64) bool {
	switch p.Constraint {
	case ConstraintPositive:
		return v > 0
	case ConstraintMaxInclination:
		return v > 0 && v <= 90
	default:
		return true
	}
}
