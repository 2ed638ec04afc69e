// Package objective defines the closed set of optimality criteria a tabular MDP
// can be solved for.
package objective

import (
	"fmt"
	"github.com/sw965/mdp"
	"github.com/sw965/mdp/internal/validation"
)

// Objective is one of FiniteHorizon, InfiniteHorizon or TotalReward.
// The set is closed; solvers match it with type switches.
type Objective interface {
	Validate() error
	isObjective()
}

// FiniteHorizon is a discounted objective over Horizon decisions.
// The optimal policy is Markov (time dependent) and deterministic.
type FiniteHorizon struct {
	Discount float64 `validate:"gte=0,lte=1"`
	Horizon  int     `validate:"gte=1"`
}

func NewFiniteHorizon(discount float64, horizon int) (FiniteHorizon, error) {
	obj := FiniteHorizon{Discount: discount, Horizon: horizon}
	return obj, obj.Validate()
}

func (o FiniteHorizon) Validate() error {
	return validation.Struct(o)
}

func (FiniteHorizon) isObjective() {}

// InfiniteHorizon is the discounted infinite-horizon objective. The optimal
// policy is stationary and deterministic.
type InfiniteHorizon struct {
	Discount float64 `validate:"gte=0,lt=1"`
}

func NewInfiniteHorizon(discount float64) (InfiniteHorizon, error) {
	obj := InfiniteHorizon{Discount: discount}
	return obj, obj.Validate()
}

func (o InfiniteHorizon) Validate() error {
	return validation.Struct(o)
}

func (InfiniteHorizon) isObjective() {}

// TotalReward maximizes the undiscounted sum of rewards. It is well posed only
// for models whose policies reach a terminal state; see package transient.
type TotalReward struct{}

func (TotalReward) Validate() error {
	return nil
}

func (TotalReward) isObjective() {}

// Discount returns the discount factor of obj; TotalReward does not discount.
func Discount(obj Objective) float64 {
	switch o := obj.(type) {
	case FiniteHorizon:
		return o.Discount
	case InfiniteHorizon:
		return o.Discount
	case TotalReward:
		return 1.0
	default:
		panic(fmt.Sprintf("BUG: unknown objective %T", obj))
	}
}

// Horizon returns the number of decisions of a finite-horizon objective.
func Horizon(obj Objective) (int, bool) {
	if o, ok := obj.(FiniteHorizon); ok {
		return o.Horizon, true
	}
	return 0, false
}

// Class is a policy class.
type Class struct {
	Stationary    bool
	Deterministic bool
}

func (c Class) String() string {
	t := "markov"
	if c.Stationary {
		t = "stationary"
	}
	d := "randomized"
	if c.Deterministic {
		d = "deterministic"
	}
	return t + "-" + d
}

// PolicyClass returns the class of policies that contains an optimal policy for obj.
func PolicyClass(obj Objective) Class {
	switch obj.(type) {
	case FiniteHorizon:
		return Class{Stationary: false, Deterministic: true}
	case InfiniteHorizon, TotalReward:
		return Class{Stationary: true, Deterministic: true}
	default:
		panic(fmt.Sprintf("BUG: unknown objective %T", obj))
	}
}

// Check validates obj and additionally rejects a nil objective.
func Check(obj Objective) error {
	if obj == nil {
		return fmt.Errorf("%w: objective is nil", mdp.ErrConfiguration)
	}
	return obj.Validate()
}
