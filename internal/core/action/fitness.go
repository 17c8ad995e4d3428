package action

import (
	"fmt"
	"strings"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
)

// FitnessKind selects the rule a Fitness node applies.
type FitnessKind uint8

const (
	// KindHasInventory passes when the target can hold items at all.
	KindHasInventory FitnessKind = iota
	// KindHasItem passes when the target holds an item with the exact name.
	KindHasItem
	// KindAny passes when at least one child passes. Empty never passes.
	KindAny
	// KindAll passes when every child passes. Empty always passes.
	KindAll
)

// Fitness is one node of an eligibility rule tree.
type Fitness struct {
	Kind     FitnessKind
	Item     string
	Children []Fitness
}

func HasInventory() Fitness          { return Fitness{Kind: KindHasInventory} }
func HasItem(name string) Fitness    { return Fitness{Kind: KindHasItem, Item: name} }
func Any(children ...Fitness) Fitness { return Fitness{Kind: KindAny, Children: children} }
func All(children ...Fitness) Fitness { return Fitness{Kind: KindAll, Children: children} }

// Target supplies the inventory facts fitness rules test against.
type Target interface {
	HasInventory(e ecs.EntityID) bool
	HasItem(e ecs.EntityID, name string) bool
}

// Fit evaluates the rule tree for one entity. Evaluation is pure; a node
// with an unrecognized kind fails, it never passes by accident.
func (f Fitness) Fit(e ecs.EntityID, t Target) bool {
	switch f.Kind {
	case KindHasInventory:
		return t.HasInventory(e)
	case KindHasItem:
		return t.HasItem(e, f.Item)
	case KindAny:
		for _, c := range f.Children {
			if c.Fit(e, t) {
				return true
			}
		}
		return false
	case KindAll:
		for _, c := range f.Children {
			if !c.Fit(e, t) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (f Fitness) String() string {
	switch f.Kind {
	case KindHasInventory:
		return "has_inventory"
	case KindHasItem:
		return fmt.Sprintf("has_item %q", f.Item)
	case KindAny, KindAll:
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			parts[i] = c.String()
		}
		word := "any"
		if f.Kind == KindAll {
			word = "all"
		}
		return word + " [" + strings.Join(parts, ", ") + "]"
	default:
		return "unknown"
	}
}
