package pwdump

import (
	"errors"
	"strings"
	"testing"

	"github.com/Iron-Ham/mediaidle/internal/graph"
)

const initialDump = `[
  {
    "id": 0,
    "type": "PipeWire:Interface:Core",
    "info": { "name": "pipewire-0" }
  },
  {
    "id": 45,
    "type": "PipeWire:Interface:Node",
    "info": {
      "state": "running",
      "props": {
        "media.class": "Stream/Output/Audio",
        "node.name": "Firefox",
        "object.serial": 812,
        "node.autoconnect": true,
        "node.rate": null
      }
    }
  },
  {
    "id": 46,
    "type": "PipeWire:Interface:Port",
    "info": {
      "direction": "output",
      "props": { "node.id": 45, "port.name": "output_FL" }
    }
  },
  {
    "id": 47,
    "type": "PipeWire:Interface:Link",
    "info": {
      "output-node-id": 45,
      "output-port-id": 46,
      "input-node-id": 33,
      "input-port-id": 34,
      "state": "active",
      "props": { "link.input.port": 34 }
    }
  }
]
`

func decodeAll(t *testing.T, input string) []graph.Batch {
	t.Helper()
	var batches []graph.Batch
	err := Decode(strings.NewReader(input), func(b graph.Batch) error {
		batches = append(batches, b)
		return nil
	})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return batches
}

func TestDecode_InitialBatch(t *testing.T) {
	batches := decodeAll(t, initialDump)
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	b := batches[0]
	if !b.Initial {
		t.Error("first batch should be marked Initial")
	}
	if len(b.Events) != 3 {
		t.Fatalf("got %d events, want 3 (core object skipped)", len(b.Events))
	}

	node := b.Events[0].Node
	if node == nil || node.ID != 45 {
		t.Fatalf("first event node = %+v", b.Events[0])
	}
	if node.MediaClass() != "Stream/Output/Audio" {
		t.Errorf("MediaClass() = %q", node.MediaClass())
	}
	if got := node.Props["object.serial"]; got != "812" {
		t.Errorf("numeric prop = %q, want 812", got)
	}
	if got := node.Props["node.autoconnect"]; got != "true" {
		t.Errorf("bool prop = %q, want true", got)
	}
	if _, ok := node.Props["node.rate"]; ok {
		t.Error("null props should be dropped")
	}

	port := b.Events[1].Port
	if port == nil || port.Direction != graph.DirectionOutput {
		t.Fatalf("port event = %+v", b.Events[1])
	}
	if port.Props[graph.KeyNodeID] != "45" {
		t.Errorf("port node.id = %q", port.Props[graph.KeyNodeID])
	}

	link := b.Events[2].Link
	if link == nil || link.State != graph.LinkStateActive {
		t.Fatalf("link event = %+v", b.Events[2])
	}
	if got := link.Props[graph.KeyLinkOutputPort]; got != "46" {
		t.Errorf("link output port = %q, want 46 from output-port-id", got)
	}
}

func TestDecode_DeltasAndRemovals(t *testing.T) {
	input := initialDump + `
[
  { "id": 47, "type": "PipeWire:Interface:Link", "info": { "state": "paused", "props": { "link.output.port": 46 } } }
]
[
  { "id": 46, "info": null },
  { "id": 99, "type": "PipeWire:Interface:Metadata", "info": null }
]
`
	batches := decodeAll(t, input)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if batches[1].Initial || batches[2].Initial {
		t.Error("only the first batch is Initial")
	}

	ev := batches[1].Events[0]
	if ev.Op != graph.OpUpsert || ev.Link == nil || ev.Link.State != graph.LinkStatePaused {
		t.Errorf("delta event = %+v", ev)
	}

	if len(batches[2].Events) != 1 {
		t.Fatalf("removal batch has %d events, want 1", len(batches[2].Events))
	}
	if rm := batches[2].Events[0]; rm.Op != graph.OpRemove || rm.ID != 46 {
		t.Errorf("removal event = %+v", rm)
	}
}

func TestDecode_AppliesToRegistry(t *testing.T) {
	input := initialDump + `[{ "id": 47, "info": null }]`
	reg := graph.NewRegistry()
	err := Decode(strings.NewReader(input), func(b graph.Batch) error {
		reg.ApplyBatch(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if _, ok := reg.LookupLink(graph.Equals(graph.KeyLinkOutputPort, "46")); ok {
		t.Error("removed link is still present")
	}
	if n := len(reg.Nodes()); n != 1 {
		t.Errorf("nodes = %d, want 1", n)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		err := Decode(strings.NewReader(`[{"id": 1,`), func(graph.Batch) error { return nil })
		if err == nil {
			t.Error("expected a decode error")
		}
	})

	t.Run("callback error stops decoding", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := Decode(strings.NewReader(`[] [] []`), func(graph.Batch) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("Decode() = %v, want stop", err)
		}
		if calls != 1 {
			t.Errorf("callback calls = %d, want 1", calls)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if err := Decode(strings.NewReader(""), func(graph.Batch) error { return nil }); err != nil {
			t.Errorf("Decode(empty) = %v, want nil", err)
		}
	})
}

func TestDecodeObject_UnknownValues(t *testing.T) {
	ev, ok := decodeObject(rawObject{
		ID:   5,
		Type: typeLink,
		Info: &rawInfo{State: "something-new"},
	})
	if !ok {
		t.Fatal("link should decode")
	}
	if ev.Link.State != graph.LinkStateUnknown || ev.Link.State.IsActive() {
		t.Errorf("unknown state decoded as %v", ev.Link.State)
	}

	ev, ok = decodeObject(rawObject{ID: 6, Type: typePort, Info: &rawInfo{Direction: "sideways"}})
	if !ok || ev.Port.Direction != graph.DirectionUnknown {
		t.Errorf("unknown direction decoded as %+v", ev)
	}

	if _, ok := decodeObject(rawObject{ID: 7, Info: &rawInfo{}}); ok {
		t.Error("typeless object with info should be skipped")
	}
}

func TestNormalizeProps_NestedValues(t *testing.T) {
	props := normalizeProps(map[string]any{
		"list": []any{"a", "b"},
	})
	if props["list"] != `["a","b"]` {
		t.Errorf("list prop = %q", props["list"])
	}
}
