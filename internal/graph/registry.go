package graph

import (
	"maps"
	"slices"
)

// Snapshot is the read-only query surface over a graph.
type Snapshot interface {
	// Nodes returns every node satisfying all constraints, ordered by ID.
	Nodes(cs ...Constraint) []Node
	// Ports returns every port satisfying all constraints, ordered by ID.
	Ports(cs ...Constraint) []Port
	// LookupLink returns the lowest-ID link satisfying all constraints.
	LookupLink(cs ...Constraint) (Link, bool)
}

// Registry is an in-memory cache of the graph, kept current by applying
// provider events. It implements Snapshot.
//
// Registry is not safe for concurrent use. The daemon only touches it from
// its event loop.
type Registry struct {
	nodes map[uint32]Node
	ports map[uint32]Port
	links map[uint32]Link
}

var _ Snapshot = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[uint32]Node),
		ports: make(map[uint32]Port),
		links: make(map[uint32]Link),
	}
}

// Apply applies events in order.
func (r *Registry) Apply(events ...Event) {
	for _, ev := range events {
		r.apply(ev)
	}
}

// ApplyBatch applies a provider batch. An initial batch replaces the
// registry contents.
func (r *Registry) ApplyBatch(b Batch) {
	if b.Initial {
		r.Reset()
	}
	r.Apply(b.Events...)
}

func (r *Registry) apply(ev Event) {
	// PipeWire global IDs are unique across object types, so an ID is only
	// ever held in one map.
	delete(r.nodes, ev.ID)
	delete(r.ports, ev.ID)
	delete(r.links, ev.ID)

	if ev.Op == OpRemove {
		return
	}

	switch {
	case ev.Node != nil:
		n := *ev.Node
		n.ID = ev.ID
		r.nodes[ev.ID] = n
	case ev.Port != nil:
		p := *ev.Port
		p.ID = ev.ID
		r.ports[ev.ID] = p
	case ev.Link != nil:
		l := *ev.Link
		l.ID = ev.ID
		r.links[ev.ID] = l
	}
}

// Reset drops every cached object.
func (r *Registry) Reset() {
	clear(r.nodes)
	clear(r.ports)
	clear(r.links)
}

// Len returns the number of cached objects.
func (r *Registry) Len() int {
	return len(r.nodes) + len(r.ports) + len(r.links)
}

// Nodes implements Snapshot.
func (r *Registry) Nodes(cs ...Constraint) []Node {
	var out []Node
	for _, id := range slices.Sorted(maps.Keys(r.nodes)) {
		if n := r.nodes[id]; matchAll(n.Props, cs) {
			out = append(out, n)
		}
	}
	return out
}

// Ports implements Snapshot.
func (r *Registry) Ports(cs ...Constraint) []Port {
	var out []Port
	for _, id := range slices.Sorted(maps.Keys(r.ports)) {
		if p := r.ports[id]; matchAll(p.Props, cs) {
			out = append(out, p)
		}
	}
	return out
}

// LookupLink implements Snapshot.
func (r *Registry) LookupLink(cs ...Constraint) (Link, bool) {
	for _, id := range slices.Sorted(maps.Keys(r.links)) {
		if l := r.links[id]; matchAll(l.Props, cs) {
			return l, true
		}
	}
	return Link{}, false
}
