package generator

import (
	"strings"
	"unicode/utf8"

	"subgraphgen/internal/graph"
	"subgraphgen/pkg/models"
)

// BuildNode converts a process-stop event into a terminated process node.
// It never returns a partially built node.
func BuildNode(event *models.RawEvent) (*graph.ProcessNode, error) {
	if event == nil {
		return nil, &BuildError{Field: "event", Reason: ReasonMissing}
	}
	if t := event.EventType(); t != models.EventTypeProcessStop {
		return nil, &BuildError{Field: "type", Reason: ReasonUnsupported, Value: t}
	}

	if event.ProcessID == nil {
		return nil, &BuildError{Field: "process_id", Reason: ReasonMissing}
	}
	name, err := requiredString("name", event.Name)
	if err != nil {
		return nil, err
	}
	hostname, err := requiredString("hostname", event.Hostname)
	if err != nil {
		return nil, err
	}
	if event.Timestamp == nil {
		return nil, &BuildError{Field: "timestamp", Reason: ReasonMissing}
	}
	if *event.Timestamp == 0 {
		return nil, &BuildError{Field: "timestamp", Reason: ReasonInvalid, Value: "0"}
	}

	pid := *event.ProcessID
	ts := *event.Timestamp
	return &graph.ProcessNode{
		NodeKey:             graph.ProcessKey(hostname, pid),
		ProcessID:           pid,
		ProcessName:         name,
		Hostname:            hostname,
		State:               graph.StateTerminated,
		TerminatedTimestamp: ts,
		LastSeenTimestamp:   ts,
	}, nil
}

func requiredString(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", &BuildError{Field: field, Reason: ReasonMissing}
	}
	if !utf8.ValidString(v) {
		return "", &BuildError{Field: field, Reason: ReasonInvalid, Value: strings.ToValidUTF8(v, "?")}
	}
	return v, nil
}

// ToFragment wraps node in a one-node graph stamped with the event time.
func ToFragment(node *graph.ProcessNode, timestamp uint64) *graph.Graph {
	g := graph.New(timestamp)
	g.AddNode(node)
	return g
}
