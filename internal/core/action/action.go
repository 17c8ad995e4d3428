package action

import (
	"errors"
	"sort"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
	"github.com/hedgerow/hedgerow/internal/core/zone"
)

var (
	ErrUnknownAction = errors.New("action: unknown action")
	ErrNotEligible   = errors.New("action: actor is not eligible")
)

// Action is something an entity near it can trigger: a door to open, an
// item to pick up. The owning entity carries a Zone whose bounds are the
// interaction area; eligibility is being inside that zone with a passing
// fitness rule.
type Action struct {
	Text     string
	Fitness  Fitness
	Lifespan Lifespan
}

// Evaluator answers availability queries on demand. It is not a scheduled
// system: callers ask when they need the answer, typically when a player
// presses the interact button.
type Evaluator struct {
	logger  log.Log
	actions *ecs.Store[Action]
	zones   *zone.System
	target  Target
}

// Deps collects what the evaluator reads. Target is usually the inventory
// ledger.
type Deps struct {
	Logger  log.Log
	Actions *ecs.Store[Action]
	Zones   *zone.System
	Target  Target
}

func NewEvaluator(d Deps) *Evaluator {
	return &Evaluator{
		logger:  d.Logger.With(log.String("system", "action")),
		actions: d.Actions,
		zones:   d.Zones,
		target:  d.Target,
	}
}

// Available returns the actions the actor can take right now, in ascending
// action-entity order: the actor is inside the action's interaction zone,
// the fitness rule passes, and the action has uses left.
func (ev *Evaluator) Available(actor ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	ev.actions.Each(func(id ecs.EntityID, a Action) bool {
		if ev.eligible(actor, id, a) {
			out = append(out, id)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Take consumes one use of the action on behalf of the actor. A spent
// action is removed and stops appearing in availability queries.
func (ev *Evaluator) Take(actor, actionID ecs.EntityID) error {
	a, ok := ev.actions.Get(actionID)
	if !ok {
		return ErrUnknownAction
	}
	if !ev.eligible(actor, actionID, a) {
		return ErrNotEligible
	}
	a.Lifespan = a.Lifespan.Take()
	if a.Lifespan.Dead() {
		ev.actions.Remove(actionID)
		ev.logger.Info("action spent",
			log.Uint64("action", uint64(actionID)), log.String("text", a.Text))
		return nil
	}
	ev.actions.Set(actionID, a)
	ev.logger.Debug("action taken",
		log.Uint64("action", uint64(actionID)),
		log.Uint64("actor", uint64(actor)),
		log.String("remaining", a.Lifespan.String()))
	return nil
}

func (ev *Evaluator) eligible(actor, actionID ecs.EntityID, a Action) bool {
	if a.Lifespan.Dead() {
		return false
	}
	switch ev.zones.PhaseOf(actionID, actor) {
	case zone.Entering, zone.Inside:
	default:
		return false
	}
	return a.Fitness.Fit(actor, ev.target)
}
