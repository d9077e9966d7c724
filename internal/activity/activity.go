// Package activity decides whether audio or video is currently flowing in a
// graph snapshot.
//
// Activity is defined at the link level: a stream node can exist without
// being connected, so only an active link from one of its output ports
// counts.
package activity

import (
	"github.com/Iron-Ham/mediaidle/internal/graph"
)

// Category is one of the media categories that are tracked.
type Category struct {
	Name    string
	Pattern string
}

// Categories lists the tracked media categories. Each one is queried in its
// own pass and the results are summed.
var Categories = []Category{
	{Name: "audio", Pattern: "*Audio*"},
	{Name: "video", Pattern: "*Video*"},
}

var (
	streamClass = graph.MustMatch(graph.KeyMediaClass, "Stream/*")
	notGrouped  = graph.Absent(graph.KeyNodeLinkGroup)

	categoryFilters = buildCategoryFilters()
)

func buildCategoryFilters() [][]graph.Constraint {
	filters := make([][]graph.Constraint, len(Categories))
	for i, cat := range Categories {
		filters[i] = []graph.Constraint{
			streamClass,
			graph.MustMatch(graph.KeyMediaClass, cat.Pattern),
			notGrouped,
		}
	}
	return filters
}

// Count returns the number of output ports, across all non link-grouped
// audio and video stream nodes, whose link is active.
//
// Ports without a link, links in any other state and objects that vanish
// between sub-queries all contribute zero.
func Count(snap graph.Snapshot) int {
	count := 0
	for _, filter := range categoryFilters {
		for _, node := range snap.Nodes(filter...) {
			for _, port := range outputPorts(snap, node) {
				if state, ok := linkState(snap, port); ok && state.IsActive() {
					count++
				}
			}
		}
	}
	return count
}

func outputPorts(snap graph.Snapshot, node graph.Node) []graph.Port {
	var out []graph.Port
	for _, port := range snap.Ports(graph.EqualsID(graph.KeyNodeID, node.ID)) {
		if port.Direction == graph.DirectionOutput {
			out = append(out, port)
		}
	}
	return out
}

func linkState(snap graph.Snapshot, port graph.Port) (graph.LinkState, bool) {
	link, ok := snap.LookupLink(graph.EqualsID(graph.KeyLinkOutputPort, port.ID))
	if !ok {
		return graph.LinkStateUnknown, false
	}
	return link.State, true
}
