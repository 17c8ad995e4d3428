package inventory

import (
	"errors"

	"github.com/hedgerow/hedgerow/internal/core/ecs"
	"github.com/hedgerow/hedgerow/internal/core/observability/log"
)

var (
	ErrUnknownItem  = errors.New("inventory: unknown item")
	ErrAlreadyOwned = errors.New("inventory: item already has an owner")
	ErrNotOwned     = errors.New("inventory: item has no owner")
	ErrNoInventory  = errors.New("inventory: entity has no inventory")
)

// ItemID is a stable handle into the item arena. Zero is never a valid item.
type ItemID uint64

const None ItemID = 0

// Item is the arena record for one item. Stack is the count of a stackable
// item; zero means the item does not stack and is always a single.
type Item struct {
	Name   string `json:"name" yaml:"name"`
	Usable bool   `json:"usable" yaml:"usable"`
	Stack  int    `json:"stack,omitempty" yaml:"stack,omitempty"`
}

func (i Item) stackable() bool { return i.Stack > 0 }

// Inventory is the component holding an entity's items in pickup order.
type Inventory struct {
	Items []ItemID
}

// Ledger owns the item arena and mediates every inventory mutation, which
// is what keeps the one-owner invariant: an ItemID is in at most one
// entity's list at any time. Mutating operations validate fully before
// touching state, so a failed call changes nothing.
type Ledger struct {
	logger      log.Log
	next        ItemID
	items       map[ItemID]Item
	owners      map[ItemID]ecs.EntityID
	inventories *ecs.Store[Inventory]
}

func NewLedger(logger log.Log, inventories *ecs.Store[Inventory]) *Ledger {
	return &Ledger{
		logger:      logger.With(log.String("system", "inventory")),
		items:       make(map[ItemID]Item),
		owners:      make(map[ItemID]ecs.EntityID),
		inventories: inventories,
	}
}

// Mint adds a new unowned item to the arena.
func (l *Ledger) Mint(item Item) ItemID {
	l.next++
	l.items[l.next] = item
	return l.next
}

func (l *Ledger) Item(id ItemID) (Item, bool) {
	item, ok := l.items[id]
	return item, ok
}

// Owner returns the entity currently holding the item, if any.
func (l *Ledger) Owner(id ItemID) (ecs.EntityID, bool) {
	owner, ok := l.owners[id]
	return owner, ok
}

// Give places an unowned item into an entity's inventory. Stackable items
// merge into an existing stack of the same name, retiring the given ItemID.
func (l *Ledger) Give(to ecs.EntityID, id ItemID) error {
	item, ok := l.items[id]
	if !ok {
		return ErrUnknownItem
	}
	if _, owned := l.owners[id]; owned {
		return ErrAlreadyOwned
	}
	inv, ok := l.inventories.Ref(to)
	if !ok {
		return ErrNoInventory
	}

	if item.stackable() {
		if held, target := l.findStack(*inv, item.Name); held {
			merged := l.items[target]
			merged.Stack += item.Stack
			l.items[target] = merged
			delete(l.items, id)
			l.logger.Debug("stacks merged",
				log.String("item", item.Name), log.Int("count", merged.Stack))
			return nil
		}
	}

	inv.Items = append(inv.Items, id)
	l.owners[id] = to
	return nil
}

// Drop removes an item from its owner's inventory, leaving it unowned in
// the arena.
func (l *Ledger) Drop(id ItemID) error {
	if _, ok := l.items[id]; !ok {
		return ErrUnknownItem
	}
	owner, ok := l.owners[id]
	if !ok {
		return ErrNotOwned
	}
	inv, ok := l.inventories.Ref(owner)
	if !ok {
		return ErrNoInventory
	}
	inv.Items = removeID(inv.Items, id)
	delete(l.owners, id)
	return nil
}

// Move transfers an item between inventories as one step: validation up
// front, then remove and insert. The item is never in two lists and never
// lost in between.
func (l *Ledger) Move(id ItemID, to ecs.EntityID) error {
	if _, ok := l.items[id]; !ok {
		return ErrUnknownItem
	}
	owner, ok := l.owners[id]
	if !ok {
		return ErrNotOwned
	}
	from, ok := l.inventories.Ref(owner)
	if !ok {
		return ErrNoInventory
	}
	dest, ok := l.inventories.Ref(to)
	if !ok {
		return ErrNoInventory
	}

	from.Items = removeID(from.Items, id)
	dest.Items = append(dest.Items, id)
	l.owners[id] = to
	return nil
}

// HasInventory reports whether the entity can hold items at all.
func (l *Ledger) HasInventory(e ecs.EntityID) bool {
	return l.inventories.Has(e)
}

// HasItem reports whether the entity holds an item with exactly this name.
// Matching is case sensitive.
func (l *Ledger) HasItem(e ecs.EntityID, name string) bool {
	inv, ok := l.inventories.Get(e)
	if !ok {
		return false
	}
	for _, id := range inv.Items {
		if item, ok := l.items[id]; ok && item.Name == name {
			return true
		}
	}
	return false
}

// Holdings returns a copy of the entity's item list in pickup order.
func (l *Ledger) Holdings(e ecs.EntityID) []ItemID {
	inv, ok := l.inventories.Get(e)
	if !ok {
		return nil
	}
	out := make([]ItemID, len(inv.Items))
	copy(out, inv.Items)
	return out
}

func (l *Ledger) findStack(inv Inventory, name string) (bool, ItemID) {
	for _, id := range inv.Items {
		if item, ok := l.items[id]; ok && item.stackable() && item.Name == name {
			return true, id
		}
	}
	return false, None
}

func removeID(ids []ItemID, id ItemID) []ItemID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
