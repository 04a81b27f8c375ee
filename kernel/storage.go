package kernel

// Storage is the common interface for every deferred-write element the
// kernel understands: writes during a cycle are buffered and only become
// observable at the start of the owning clock's next cycle, at which point
// subscribed processes that care about the change are reactivated.
//
// Concrete variants: Register, Flag, Buffer, Queue, Counter (SPEC_FULL.md
// §4.4/§9: a tagged-variant design rather than inheritance from a Storage
// base class, grounded in jmchacon-6502/pia6532.Chip's Tick/TickDone
// current/shadow split — see DESIGN.md).
type Storage interface {
	// Name returns the storage's introspection name.
	Name() string
	// Clock returns the clock this storage is bound to; its value only
	// becomes visible at the start of that clock's next cycle.
	Clock() *Clock
	// Subscribe registers p to be activated whenever this storage's
	// committed state changes in the way this variant defines as
	// "changed" (see each variant's commit method).
	Subscribe(p *Process)

	// isActive/setActive/next/setNext maintain the intrusive active-list
	// link inside the owning Clock; they are unexported because only
	// this package's Clock/Kernel ever need to walk the list.
	isActive() bool
	setActive(bool)
	next() Storage
	setNext(Storage)

	// commit promotes any buffered update to committed state and
	// notifies subscribers if the variant's own definition of "changed"
	// held. Called exactly once per active storage by the kernel's
	// storage-update pass, before any process in that cycle runs
	// acquire again.
	commit()
}

// storageBase factors out the bookkeeping shared by every Storage variant:
// owning clock, introspection name, subscriber list, and the intrusive
// active-list link. Concrete variants embed it and only need to implement
// their own domain API plus commit().
type storageBase struct {
	clock *Clock
	name  string
	subs  []*Process

	active bool
	nxt    Storage
}

func (b *storageBase) Name() string          { return b.name }
func (b *storageBase) Clock() *Clock         { return b.clock }
func (b *storageBase) Subscribe(p *Process)  { b.subs = append(b.subs, p) }
func (b *storageBase) isActive() bool        { return b.active }
func (b *storageBase) setActive(active bool) { b.active = active }
func (b *storageBase) next() Storage         { return b.nxt }
func (b *storageBase) setNext(s Storage)     { b.nxt = s }

// markPending links self onto its clock's active-storage list so the next
// storage-update pass visits it. self must be the concrete Storage value
// embedding this storageBase (Go has no CRTP, so callers pass themselves).
func (b *storageBase) markPending(self Storage) {
	b.clock.activateStorage(self)
}

// notify activates every subscribed process. Called by a concrete variant's
// commit() exactly when its own "changed" predicate held.
func (b *storageBase) notify() {
	for _, p := range b.subs {
		p.Activate()
	}
}

// finishCommit unlinks self from its clock's active list (the kernel's
// storage-update pass walks that whole list and then empties it, so
// clearing the flag here is sufficient bookkeeping) and notifies
// subscribers if changed. Every concrete variant's commit() ends by calling
// this.
func (b *storageBase) finishCommit(changed bool) {
	b.active = false
	if changed {
		b.notify()
	}
}
