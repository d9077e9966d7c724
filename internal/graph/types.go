// Package graph models the subset of the PipeWire object graph that
// mediaidle cares about: nodes, ports and links, plus the property
// constraints used to query them.
//
// Provider-specific values (direction strings, link state nicks) are decoded
// into the closed enumerations defined here at the provider boundary, so the
// rest of the program never sees raw provider data.
package graph

import "strings"

// Well-known property keys.
const (
	KeyMediaClass     = "media.class"
	KeyNodeName       = "node.name"
	KeyNodeLinkGroup  = "node.link-group"
	KeyNodeID         = "node.id"
	KeyPortName       = "port.name"
	KeyLinkOutputPort = "link.output.port"
)

// Direction is the data flow direction of a port.
type Direction int

const (
	// DirectionUnknown is used when the provider reported no usable direction.
	DirectionUnknown Direction = iota
	// DirectionInput marks a port that consumes media.
	DirectionInput
	// DirectionOutput marks a port that produces media.
	DirectionOutput
)

// String returns the provider name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ParseDirection decodes a provider direction string.
func ParseDirection(s string) Direction {
	switch strings.ToLower(s) {
	case "input", "in":
		return DirectionInput
	case "output", "out":
		return DirectionOutput
	default:
		return DirectionUnknown
	}
}

// LinkState is the negotiation state of a link.
type LinkState int

const (
	// LinkStateUnknown covers any value the provider reports that is not
	// recognized. It is never treated as active.
	LinkStateUnknown LinkState = iota
	LinkStateError
	LinkStateUnlinked
	LinkStateInit
	LinkStateNegotiating
	LinkStateAllocating
	LinkStatePaused
	LinkStateActive
)

var linkStateNames = map[LinkState]string{
	LinkStateError:       "error",
	LinkStateUnlinked:    "unlinked",
	LinkStateInit:        "init",
	LinkStateNegotiating: "negotiating",
	LinkStateAllocating:  "allocating",
	LinkStatePaused:      "paused",
	LinkStateActive:      "active",
}

// String returns the provider nick of the state.
func (s LinkState) String() string {
	if name, ok := linkStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsActive reports whether media is flowing over a link in this state.
func (s LinkState) IsActive() bool {
	return s == LinkStateActive
}

// ParseLinkState decodes a provider link state nick. Unrecognized values
// decode to LinkStateUnknown.
func ParseLinkState(s string) LinkState {
	s = strings.ToLower(strings.TrimSpace(s))
	for state, name := range linkStateNames {
		if name == s {
			return state
		}
	}
	return LinkStateUnknown
}

// Props is a property bag. Values are normalized to strings by the provider
// adapter.
type Props map[string]string

// Get returns the value of key and whether it is set.
func (p Props) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Node is a graph node. Stream nodes (media class "Stream/*") are the
// endpoints whose activity is tracked.
type Node struct {
	ID    uint32
	Props Props
}

// Name returns the node.name property, or an empty string.
func (n Node) Name() string { return n.Props[KeyNodeName] }

// MediaClass returns the media.class property, or an empty string.
func (n Node) MediaClass() string { return n.Props[KeyMediaClass] }

// Port is a node port. The owning node is referenced through the node.id
// property.
type Port struct {
	ID        uint32
	Direction Direction
	Props     Props
}

// Link connects an output port to an input port.
type Link struct {
	ID    uint32
	State LinkState
	Props Props
}

// Op is the kind of change carried by an Event.
type Op int

const (
	// OpUpsert inserts or replaces an object.
	OpUpsert Op = iota
	// OpRemove deletes an object by ID.
	OpRemove
)

// Event is a single change to the object graph. For OpUpsert exactly one of
// Node, Port or Link is set. For OpRemove only ID is meaningful.
type Event struct {
	Op   Op
	ID   uint32
	Node *Node
	Port *Port
	Link *Link
}

// Batch is a group of events delivered together by a provider.
type Batch struct {
	// Initial marks the complete initial enumeration of the graph. A
	// registry receiving an initial batch replaces its contents.
	Initial bool
	Events  []Event
}
