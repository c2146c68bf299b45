package graph

import (
	"fmt"
	"sort"
	"strings"
)

// ProcessState is the lifecycle state of a process node.
type ProcessState int32

const (
	StateUnknown ProcessState = iota
	StateCreated
	StateRunning
	StateTerminated
)

func (s ProcessState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ProcessNode is a process vertex. Its key is derived from hostname and
// process id only, so every state of one process maps to the same key.
type ProcessNode struct {
	NodeKey             string       `json:"node_key"`
	ProcessID           uint64       `json:"process_id"`
	ProcessName         string       `json:"process_name,omitempty"`
	Hostname            string       `json:"hostname,omitempty"`
	State               ProcessState `json:"state"`
	CreatedTimestamp    uint64       `json:"created_timestamp,omitempty"`
	TerminatedTimestamp uint64       `json:"terminated_timestamp,omitempty"`
	LastSeenTimestamp   uint64       `json:"last_seen_timestamp,omitempty"`
	Tags                []string     `json:"tags,omitempty"`
}

// ProcessKey returns the identity key for a process on a host.
func ProcessKey(hostname string, processID uint64) string {
	return fmt.Sprintf("process:%s:%d", strings.ToLower(strings.TrimSpace(hostname)), processID)
}

// Clone returns a deep copy of n.
func (n *ProcessNode) Clone() *ProcessNode {
	if n == nil {
		return nil
	}
	out := *n
	if n.Tags != nil {
		out.Tags = append([]string(nil), n.Tags...)
	}
	return &out
}

// Merge folds other into n. The result does not depend on argument order:
// the most advanced state wins, created keeps the earliest timestamp,
// terminated and last-seen keep the latest, conflicting strings resolve to
// the greater value and tags are unioned.
func (n *ProcessNode) Merge(other *ProcessNode) {
	if other == nil {
		return
	}
	if other.State > n.State {
		n.State = other.State
	}
	n.ProcessName = pickString(n.ProcessName, other.ProcessName)
	n.Hostname = pickString(n.Hostname, other.Hostname)
	n.CreatedTimestamp = minNonZero(n.CreatedTimestamp, other.CreatedTimestamp)
	n.TerminatedTimestamp = max(n.TerminatedTimestamp, other.TerminatedTimestamp)
	n.LastSeenTimestamp = max(n.LastSeenTimestamp, other.LastSeenTimestamp)
	n.Tags = unionTags(n.Tags, other.Tags)
}

// Equal reports whether two nodes carry the same attributes.
func (n *ProcessNode) Equal(other *ProcessNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.NodeKey != other.NodeKey ||
		n.ProcessID != other.ProcessID ||
		n.ProcessName != other.ProcessName ||
		n.Hostname != other.Hostname ||
		n.State != other.State ||
		n.CreatedTimestamp != other.CreatedTimestamp ||
		n.TerminatedTimestamp != other.TerminatedTimestamp ||
		n.LastSeenTimestamp != other.LastSeenTimestamp ||
		len(n.Tags) != len(other.Tags) {
		return false
	}
	for i := range n.Tags {
		if n.Tags[i] != other.Tags[i] {
			return false
		}
	}
	return true
}

func pickString(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if b > a {
		return b
	}
	return a
}

func minNonZero(a, b uint64) uint64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	return min(a, b)
}

func unionTags(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, tag := range list {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
