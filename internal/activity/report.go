package activity

import (
	"github.com/Iron-Ham/mediaidle/internal/graph"
)

// PortReport describes one output port of an endpoint.
type PortReport struct {
	PortID    uint32 `json:"port_id" yaml:"port_id"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Linked    bool   `json:"linked" yaml:"linked"`
	LinkID    uint32 `json:"link_id,omitempty" yaml:"link_id,omitempty"`
	LinkState string `json:"link_state" yaml:"link_state"`
	Active    bool   `json:"active" yaml:"active"`
}

// EndpointReport describes one stream node considered by Count.
type EndpointReport struct {
	NodeID     uint32       `json:"node_id" yaml:"node_id"`
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	MediaClass string       `json:"media_class" yaml:"media_class"`
	Category   string       `json:"category" yaml:"category"`
	Ports      []PortReport `json:"ports" yaml:"ports"`
	Active     int          `json:"active" yaml:"active"`
}

// GroupedEndpoint is a stream node skipped because it belongs to a link
// group.
type GroupedEndpoint struct {
	NodeID     uint32 `json:"node_id" yaml:"node_id"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	MediaClass string `json:"media_class" yaml:"media_class"`
	LinkGroup  string `json:"link_group" yaml:"link_group"`
}

// Report is a detailed view of the traversal performed by Count.
type Report struct {
	Endpoints []EndpointReport  `json:"endpoints" yaml:"endpoints"`
	Grouped   []GroupedEndpoint `json:"grouped,omitempty" yaml:"grouped,omitempty"`
	Active    int               `json:"active" yaml:"active"`
}

// Inspect walks the snapshot exactly like Count, recording every endpoint
// and port it visits. Report.Active always equals Count for the same
// snapshot.
func Inspect(snap graph.Snapshot) Report {
	var report Report

	for i, filter := range categoryFilters {
		for _, node := range snap.Nodes(filter...) {
			ep := EndpointReport{
				NodeID:     node.ID,
				Name:       node.Name(),
				MediaClass: node.MediaClass(),
				Category:   Categories[i].Name,
			}
			for _, port := range outputPorts(snap, node) {
				pr := PortReport{
					PortID:    port.ID,
					Name:      port.Props[graph.KeyPortName],
					LinkState: graph.LinkStateUnknown.String(),
				}
				if link, ok := snap.LookupLink(graph.EqualsID(graph.KeyLinkOutputPort, port.ID)); ok {
					pr.Linked = true
					pr.LinkID = link.ID
					pr.LinkState = link.State.String()
					pr.Active = link.State.IsActive()
				}
				if pr.Active {
					ep.Active++
				}
				ep.Ports = append(ep.Ports, pr)
			}
			report.Active += ep.Active
			report.Endpoints = append(report.Endpoints, ep)
		}
	}

	for _, node := range snap.Nodes(streamClass, graph.Present(graph.KeyNodeLinkGroup)) {
		report.Grouped = append(report.Grouped, GroupedEndpoint{
			NodeID:     node.ID,
			Name:       node.Name(),
			MediaClass: node.MediaClass(),
			LinkGroup:  node.Props[graph.KeyNodeLinkGroup],
		})
	}

	return report
}
