package activity

import (
	"strconv"
	"testing"

	"github.com/Iron-Ham/mediaidle/internal/graph"
)

// graphBuilder assembles a registry with sequential IDs.
type graphBuilder struct {
	reg    *graph.Registry
	nextID uint32
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{reg: graph.NewRegistry(), nextID: 100}
}

func (b *graphBuilder) id() uint32 {
	b.nextID++
	return b.nextID
}

func (b *graphBuilder) node(mediaClass string, extra graph.Props) uint32 {
	id := b.id()
	props := graph.Props{graph.KeyMediaClass: mediaClass, graph.KeyNodeName: "node-" + strconv.Itoa(int(id))}
	for k, v := range extra {
		props[k] = v
	}
	b.reg.Apply(graph.Event{Op: graph.OpUpsert, ID: id, Node: &graph.Node{Props: props}})
	return id
}

func (b *graphBuilder) port(nodeID uint32, dir graph.Direction) uint32 {
	id := b.id()
	b.reg.Apply(graph.Event{Op: graph.OpUpsert, ID: id, Port: &graph.Port{
		Direction: dir,
		Props:     graph.Props{graph.KeyNodeID: strconv.FormatUint(uint64(nodeID), 10)},
	}})
	return id
}

func (b *graphBuilder) link(outPort uint32, state graph.LinkState) uint32 {
	id := b.id()
	b.reg.Apply(graph.Event{Op: graph.OpUpsert, ID: id, Link: &graph.Link{
		State: state,
		Props: graph.Props{graph.KeyLinkOutputPort: strconv.FormatUint(uint64(outPort), 10)},
	}})
	return id
}

func TestCount_Scenarios(t *testing.T) {
	t.Run("active audio stream counts once", func(t *testing.T) {
		b := newGraphBuilder()
		n := b.node("Stream/Output/Audio", nil)
		b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)

		if got := Count(b.reg); got != 1 {
			t.Errorf("Count() = %d, want 1", got)
		}
	})

	t.Run("empty graph", func(t *testing.T) {
		if got := Count(graph.NewRegistry()); got != 0 {
			t.Errorf("Count() = %d, want 0", got)
		}
	})

	t.Run("link-grouped endpoint is excluded", func(t *testing.T) {
		b := newGraphBuilder()
		n := b.node("Stream/Output/Audio", graph.Props{graph.KeyNodeLinkGroup: "group-1"})
		b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)

		if got := Count(b.reg); got != 0 {
			t.Errorf("Count() = %d, want 0", got)
		}
	})

	t.Run("output port without link contributes zero", func(t *testing.T) {
		b := newGraphBuilder()
		n := b.node("Stream/Output/Audio", nil)
		b.port(n, graph.DirectionOutput)

		if got := Count(b.reg); got != 0 {
			t.Errorf("Count() = %d, want 0", got)
		}
	})
}

func TestCount_Filtering(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *graphBuilder)
		want  int
	}{
		{
			name: "video capture stream",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Input/Video", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
			},
			want: 1,
		},
		{
			name: "non-stream audio sink is ignored",
			build: func(b *graphBuilder) {
				n := b.node("Audio/Sink", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
			},
			want: 0,
		},
		{
			name: "midi stream is ignored",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Output/Midi", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
			},
			want: 0,
		},
		{
			name: "input ports are ignored",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Input/Audio", nil)
				b.link(b.port(n, graph.DirectionInput), graph.LinkStateActive)
			},
			want: 0,
		},
		{
			name: "paused and unknown links do not count",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Output/Audio", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStatePaused)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateUnknown)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateNegotiating)
			},
			want: 0,
		},
		{
			name: "every active output port counts",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Output/Audio", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
				m := b.node("Stream/Output/Video", nil)
				b.link(b.port(m, graph.DirectionOutput), graph.LinkStateActive)
			},
			want: 3,
		},
		{
			name: "stream matching both categories counts in each pass",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Output/AudioVideo", nil)
				b.link(b.port(n, graph.DirectionOutput), graph.LinkStateActive)
			},
			want: 2,
		},
		{
			name: "only the first matching link is consulted",
			build: func(b *graphBuilder) {
				n := b.node("Stream/Output/Audio", nil)
				p := b.port(n, graph.DirectionOutput)
				b.link(p, graph.LinkStatePaused)
				b.link(p, graph.LinkStateActive)
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newGraphBuilder()
			tc.build(b)
			if got := Count(b.reg); got != tc.want {
				t.Errorf("Count() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCount_VanishedObjects(t *testing.T) {
	b := newGraphBuilder()
	n := b.node("Stream/Output/Audio", nil)
	p := b.port(n, graph.DirectionOutput)
	l := b.link(p, graph.LinkStateActive)

	if got := Count(b.reg); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	b.reg.Apply(graph.Event{Op: graph.OpRemove, ID: l})
	if got := Count(b.reg); got != 0 {
		t.Errorf("after link removal Count() = %d, want 0", got)
	}

	b.link(p, graph.LinkStateActive)
	b.reg.Apply(graph.Event{Op: graph.OpRemove, ID: p})
	if got := Count(b.reg); got != 0 {
		t.Errorf("after port removal Count() = %d, want 0", got)
	}
}

func TestInspect_MatchesCount(t *testing.T) {
	b := newGraphBuilder()
	audio := b.node("Stream/Output/Audio", nil)
	b.link(b.port(audio, graph.DirectionOutput), graph.LinkStateActive)
	b.port(audio, graph.DirectionOutput)
	video := b.node("Stream/Input/Video", nil)
	b.link(b.port(video, graph.DirectionOutput), graph.LinkStatePaused)
	grouped := b.node("Stream/Output/Audio", graph.Props{graph.KeyNodeLinkGroup: "loopback-1"})
	b.link(b.port(grouped, graph.DirectionOutput), graph.LinkStateActive)

	report := Inspect(b.reg)

	if report.Active != Count(b.reg) {
		t.Errorf("Report.Active = %d, Count() = %d", report.Active, Count(b.reg))
	}
	if report.Active != 1 {
		t.Errorf("Report.Active = %d, want 1", report.Active)
	}
	if len(report.Endpoints) != 2 {
		t.Fatalf("len(Endpoints) = %d, want 2", len(report.Endpoints))
	}

	first := report.Endpoints[0]
	if first.NodeID != audio || first.Category != "audio" {
		t.Errorf("first endpoint = %+v, want audio node %d", first, audio)
	}
	if len(first.Ports) != 2 {
		t.Fatalf("audio endpoint ports = %d, want 2", len(first.Ports))
	}
	if !first.Ports[0].Active || first.Ports[0].LinkState != "active" {
		t.Errorf("first port = %+v, want active", first.Ports[0])
	}
	if first.Ports[1].Linked || first.Ports[1].LinkState != "unknown" {
		t.Errorf("second port = %+v, want unlinked", first.Ports[1])
	}

	if report.Endpoints[1].Category != "video" || report.Endpoints[1].Ports[0].LinkState != "paused" {
		t.Errorf("video endpoint = %+v", report.Endpoints[1])
	}

	if len(report.Grouped) != 1 || report.Grouped[0].LinkGroup != "loopback-1" {
		t.Errorf("Grouped = %+v, want one loopback-1 entry", report.Grouped)
	}
}
