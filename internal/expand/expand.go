// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand decides, after every merge, whether the candidate set
// meets its size targets and which policy should regenerate queries when it
// does not. The controller is a state machine with an anti-oscillation rule
// and a hard iteration ceiling, so the loop always terminates.
// Implements: prd010-orchestration (R4.1-R4.6);
//
//	docs/ARCHITECTURE § Expansion Controller.
package expand

import (
	"fmt"

	"github.com/pdiddy/litsearch/pkg/types"
)

// State is the controller's verdict on a merge snapshot.
type State string

const (
	// StateInsufficient means the candidate count is below the floor.
	StateInsufficient State = "insufficient"

	// StateExcessive means the candidate count is above the ceiling.
	StateExcessive State = "excessive"

	// StateConverged means the count is within targets; the loop ends.
	StateConverged State = "converged"

	// StateExhausted means the iteration budget or the policy set ran out
	// before convergence; the loop ends with the best snapshot so far.
	StateExhausted State = "exhausted"
)

// insufficientPolicies is the preference order when results are too few.
var insufficientPolicies = []types.OriginPolicy{
	types.OriginBroaden,
	types.OriginLateral,
	types.OriginTemporal,
}

// Controller evaluates merge snapshots against the configured targets.
// Not safe for concurrent use; one controller drives one expansion loop.
type Controller struct {
	cfg        types.ExpansionConfig
	iterations int
	lastPolicy types.OriginPolicy
	lastState  State

	// attempted tracks which policies have been tried per trigger state in
	// this session, so the same remedy is not re-applied to the same
	// condition once the policy set is exhausted.
	attempted map[State]map[types.OriginPolicy]bool
}

// New builds a controller for one expansion loop.
func New(cfg types.ExpansionConfig) *Controller {
	return &Controller{
		cfg:       cfg,
		attempted: make(map[State]map[types.OriginPolicy]bool),
	}
}

// Iterations returns how many expansion decisions have been issued.
func (c *Controller) Iterations() int {
	return c.iterations
}

// Evaluate inspects a snapshot and returns the resulting state. For
// insufficient and excessive states it also returns the decision that
// drives the next generator call; for converged and exhausted the decision
// is nil and the loop must stop.
func (c *Controller) Evaluate(snap *types.MergeSnapshot) (State, *types.ExpansionDecision) {
	count := len(snap.Candidates)

	var trigger State
	switch {
	case count < c.cfg.FloorCandidates:
		trigger = StateInsufficient
	case count > c.cfg.CeilingCandidates:
		trigger = StateExcessive
	default:
		c.lastState = StateConverged
		return StateConverged, nil
	}

	if c.iterations >= c.cfg.MaxIterations {
		c.lastState = StateExhausted
		return StateExhausted, nil
	}

	policy, ok := c.pick(trigger)
	if !ok {
		// Every applicable policy has been tried without converging.
		c.lastState = StateExhausted
		return StateExhausted, nil
	}

	c.iterations++
	c.lastPolicy = policy
	c.lastState = trigger
	c.mark(trigger, policy)

	return trigger, &types.ExpansionDecision{
		Policy:          policy,
		Reason:          reason(trigger, count, c.cfg),
		TriggerSnapshot: snap.SessionIndex,
	}
}

// pick selects the next policy for a trigger, honoring the preference order
// and never repeating the immediately preceding policy for the same trigger.
func (c *Controller) pick(trigger State) (types.OriginPolicy, bool) {
	switch trigger {
	case StateExcessive:
		if c.lastState == StateExcessive && c.lastPolicy == types.OriginNarrow {
			// Narrow is the only remedy for excessive results; repeating it
			// immediately would oscillate.
			return "", false
		}
		return types.OriginNarrow, true

	case StateInsufficient:
		for _, p := range insufficientPolicies {
			if c.attempted[trigger][p] {
				continue
			}
			if c.lastState == trigger && c.lastPolicy == p {
				continue
			}
			return p, true
		}
		return "", false

	default:
		return "", false
	}
}

func (c *Controller) mark(trigger State, policy types.OriginPolicy) {
	if c.attempted[trigger] == nil {
		c.attempted[trigger] = make(map[types.OriginPolicy]bool)
	}
	c.attempted[trigger][policy] = true
}

func reason(trigger State, count int, cfg types.ExpansionConfig) string {
	if trigger == StateInsufficient {
		return fmt.Sprintf("%d candidates below floor %d", count, cfg.FloorCandidates)
	}
	return fmt.Sprintf("%d candidates above ceiling %d", count, cfg.CeilingCandidates)
}
