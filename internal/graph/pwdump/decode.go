package pwdump

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph"
)

// PipeWire interface type names as printed by pw-dump.
const (
	typeNode = "PipeWire:Interface:Node"
	typePort = "PipeWire:Interface:Port"
	typeLink = "PipeWire:Interface:Link"
)

type rawObject struct {
	ID   uint32   `json:"id"`
	Type string   `json:"type"`
	Info *rawInfo `json:"info"`
}

type rawInfo struct {
	Direction    string         `json:"direction"`
	State        string         `json:"state"`
	OutputPortID *uint32        `json:"output-port-id"`
	Props        map[string]any `json:"props"`
}

// Decode reads successive JSON arrays of pw-dump objects from r and calls
// fn with one batch per array. The first batch is marked Initial. Decode
// returns nil when r reaches EOF between arrays, the error from fn if it
// fails, or a decode error.
func Decode(r io.Reader, fn func(graph.Batch) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	initial := true
	for {
		var objects []rawObject
		if err := dec.Decode(&objects); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode pw-dump output: %w", err)
		}

		batch := graph.Batch{Initial: initial}
		for _, obj := range objects {
			if ev, ok := decodeObject(obj); ok {
				batch.Events = append(batch.Events, ev)
			}
		}
		initial = false

		if err := fn(batch); err != nil {
			return err
		}
	}
}

// decodeObject maps one raw pw-dump object to a graph event. This is the
// only place raw provider values are interpreted.
func decodeObject(obj rawObject) (graph.Event, bool) {
	switch obj.Type {
	case "", typeNode, typePort, typeLink:
	default:
		return graph.Event{}, false
	}

	if obj.Info == nil {
		return graph.Event{Op: graph.OpRemove, ID: obj.ID}, true
	}

	props := normalizeProps(obj.Info.Props)
	ev := graph.Event{Op: graph.OpUpsert, ID: obj.ID}

	switch obj.Type {
	case typeNode:
		ev.Node = &graph.Node{ID: obj.ID, Props: props}
	case typePort:
		ev.Port = &graph.Port{
			ID:        obj.ID,
			Direction: graph.ParseDirection(obj.Info.Direction),
			Props:     props,
		}
	case typeLink:
		if _, ok := props[graph.KeyLinkOutputPort]; !ok && obj.Info.OutputPortID != nil {
			props[graph.KeyLinkOutputPort] = strconv.FormatUint(uint64(*obj.Info.OutputPortID), 10)
		}
		ev.Link = &graph.Link{
			ID:    obj.ID,
			State: graph.ParseLinkState(obj.Info.State),
			Props: props,
		}
	default:
		// An update without a type carries nothing we can classify.
		return graph.Event{}, false
	}
	return ev, true
}

func normalizeProps(raw map[string]any) graph.Props {
	props := make(graph.Props, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			props[k] = val
		case json.Number:
			props[k] = val.String()
		case bool:
			props[k] = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			props[k] = string(b)
		}
	}
	return props
}
