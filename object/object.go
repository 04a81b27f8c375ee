// Package object implements the hierarchical naming tree used to route
// debug and introspection commands to a simulated component (SPEC_FULL.md
// §2, §6, §11.3). It is a weak infrastructural concern: processes and
// storages only need to be reachable by a dotted path, nothing more.
//
// Grounded in jmchacon-6502/atari2600.controller's fixed two-level address
// decode (Read/Write dispatch by masked address), generalized here from a
// fixed-depth hardware address decode to an arbitrary-depth named tree.
package object

import "strings"

// Object is one node in the tree: a named component that may have children
// and, optionally, a payload of interest to introspection (a *kernel.Clock,
// a kernel.Storage, a *kernel.Process, or nil for a pure grouping node).
type Object struct {
	name     string
	parent   *Object
	children map[string]*Object
	payload  any
}

// New creates a root Object with the given name and payload. A simulation
// typically creates exactly one root (e.g. "core0") and attaches every
// component it owns as a child.
func New(name string, payload any) *Object {
	return &Object{name: name, payload: payload}
}

// Name returns the object's own name (not its full dotted path).
func (o *Object) Name() string { return o.name }

// Payload returns whatever value was registered alongside this node.
func (o *Object) Payload() any { return o.payload }

// Parent returns the object's parent, or nil for a root.
func (o *Object) Parent() *Object { return o.parent }

// Path returns the object's full dotted path from the root, e.g.
// "core0.pipeline.register_file".
func (o *Object) Path() string {
	if o.parent == nil {
		return o.name
	}
	return o.parent.Path() + "." + o.name
}

// Child creates and attaches a new child named name carrying payload.
// Returns an error if a child with that name (case-insensitively) already
// exists.
func (o *Object) Child(name string, payload any) (*Object, error) {
	key := strings.ToLower(name)
	if o.children == nil {
		o.children = make(map[string]*Object)
	}
	if _, exists := o.children[key]; exists {
		return nil, &DuplicateChildError{Parent: o.Path(), Name: name}
	}
	c := &Object{name: name, parent: o, payload: payload}
	o.children[key] = c
	return c, nil
}

// Children returns the object's direct children. Order is unspecified;
// callers needing a stable order should sort by Name().
func (o *Object) Children() []*Object {
	out := make([]*Object, 0, len(o.children))
	for _, c := range o.children {
		out = append(out, c)
	}
	return out
}

// Resolve walks a dotted path (case-insensitive at every segment) starting
// at o and returns the named descendant. The first segment may optionally
// repeat o's own name (so both "core0.pipeline" and "pipeline" resolve the
// same node when called on the "core0" root).
func (o *Object) Resolve(path string) (*Object, bool) {
	segs := strings.Split(path, ".")
	if len(segs) > 0 && strings.EqualFold(segs[0], o.name) {
		segs = segs[1:]
	}
	cur := o
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		next, ok := cur.children[strings.ToLower(seg)]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// DuplicateChildError is returned by Child when the name collides
// case-insensitively with an existing child.
type DuplicateChildError struct {
	Parent string
	Name   string
}

// Error implements the error interface.
func (e *DuplicateChildError) Error() string {
	return "object: " + e.Parent + ": child named " + e.Name + " already exists"
}
