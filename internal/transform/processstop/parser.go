package processstop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"subgraphgen/internal/logger"
	"subgraphgen/pkg/models"
)

// Parse decodes a process-stop record. Both the flat form
// {"process_id":42,"name":"a.exe","hostname":"h","timestamp":1000} and the
// nested agent form (process.pid, process.name, host.name, @timestamp) are
// accepted. Absent fields stay absent so the node builder can reject them;
// fields that are present but cannot be converted are reported here.
func Parse(data []byte) (*models.RawEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode event: unexpected data after JSON object")
	}

	event := &models.RawEvent{
		Type:     getString(raw, "type", "event.type"),
		Name:     getString(raw, "name", "process.name", "process_name"),
		Hostname: getString(raw, "hostname", "host.name", "host.hostname"),
	}

	pid, ok, err := getUint(raw, "process_id", "process.pid", "pid")
	if err != nil {
		return nil, fmt.Errorf("process_id: %w", err)
	}
	if ok {
		event.ProcessID = &pid
	}

	ts, ok, err := getTimestamp(raw)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	if ok {
		event.Timestamp = &ts
	}

	if event.ProcessID == nil || event.Timestamp == nil {
		logger.Debugf("Parsed event with absent fields (type=%s, host=%s, name=%s)", event.EventType(), event.Hostname, event.Name)
	}
	return event, nil
}

func getTimestamp(raw map[string]interface{}) (uint64, bool, error) {
	ts, ok, err := getUint(raw, "timestamp", "event.timestamp")
	if err != nil || ok {
		return ts, ok, err
	}
	s := getString(raw, "@timestamp")
	if s == "" {
		return 0, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			ms := t.UnixMilli()
			if ms < 0 {
				return 0, false, fmt.Errorf("negative time %q", s)
			}
			return uint64(ms), true, nil
		}
	}
	return 0, false, fmt.Errorf("unrecognized time format %q", s)
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				return strings.TrimSpace(val)
			case json.Number:
				return val.String()
			}
		}
	}
	return ""
}

// getUint reads the first present path as an unsigned integer. Strings of
// digits are accepted; fractions, negatives and other types are errors.
func getUint(root map[string]interface{}, paths ...string) (uint64, bool, error) {
	for _, path := range paths {
		v, ok := getPath(root, path)
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case json.Number:
			n, err := strconv.ParseUint(val.String(), 10, 64)
			if err != nil {
				f, ferr := val.Float64()
				if ferr != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
					return 0, false, fmt.Errorf("%s: not an unsigned integer: %s", path, val)
				}
				return uint64(f), true, nil
			}
			return n, true, nil
		case string:
			if strings.TrimSpace(val) == "" {
				continue
			}
			n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return 0, false, fmt.Errorf("%s: not an unsigned integer: %q", path, val)
			}
			return n, true, nil
		default:
			return 0, false, fmt.Errorf("%s: unsupported type %T", path, v)
		}
	}
	return 0, false, nil
}

func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := root[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
