package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	ErrRead       = errors.New("unable to read key configuration")
	ErrMalformed  = errors.New("malformed key configuration")
	ErrNotMapping = errors.New("key configuration is not a mapping")
)

// Recognized keys of the configuration file.
const (
	FieldKey         = "skey"
	FieldDelayBefore = "delay_before"
	FieldDelayAfter  = "delay_after"
	FieldWaitEvent   = "wait_event"
	FieldRepeat      = "repeat"
)

// Load reads a JSON (or YAML) key configuration. On any failure the defaults are
// returned together with the error, so callers can always proceed.
func Load(path string) (KeyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return Parse(data)
}

// Parse decodes a configuration document. Documents that open with '{' or '['
// are JSON, anything else is read as YAML.
func Parse(data []byte) (KeyConfig, error) {
	var doc any
	if body, ok := jsonBody(data); ok {
		if err := json.Unmarshal(body, &doc); err != nil {
			return Default(), fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return FromValue(doc)
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Default(), fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc == nil {
		return Default(), fmt.Errorf("%w: empty document", ErrMalformed)
	}
	return FromValue(doc)
}

// jsonBody strips leading whitespace and a byte order mark.
func jsonBody(data []byte) ([]byte, bool) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	return trimmed, len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// LoadOrDefault is Load that logs instead of failing.
func LoadOrDefault(path string, log logrus.FieldLogger) KeyConfig {
	kc, err := Load(path)
	if err != nil {
		log.WithField("path", path).WithError(err).Error("unable to load key configuration, using defaults")
	}
	return kc
}

// FromValue restricts a generic decoded document to the recognized fields.
// Fields of an unexpected type keep their defaults.
func FromValue(v any) (KeyConfig, error) {
	fields, ok := asMapping(v)
	if !ok {
		return Default(), fmt.Errorf("%w: got %T", ErrNotMapping, v)
	}

	kc := Default()
	if s, ok := fields[FieldKey].(string); ok {
		kc.Key = s
	}
	if d, ok := asDuration(fields[FieldDelayBefore]); ok {
		kc.DelayBefore = d
	}
	if d, ok := asDuration(fields[FieldDelayAfter]); ok {
		kc.DelayAfter = d
	}
	if s, ok := fields[FieldWaitEvent].(string); ok {
		kc.WaitEvent = s
	}
	if n, ok := asInt(fields[FieldRepeat]); ok {
		kc.Repeat = n
	}
	return kc, nil
}

func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out, true
	}
	return nil, false
}

// asDuration accepts numbers as seconds and strings as either Go durations or seconds.
func asDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case int:
		return time.Duration(d) * time.Second, d >= 0
	case int64:
		return time.Duration(d) * time.Second, d >= 0
	case uint64:
		return time.Duration(d) * time.Second, true
	case float64:
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		return time.Duration(d * float64(time.Second)), true
	case string:
		if parsed, err := time.ParseDuration(d); err == nil && parsed >= 0 {
			return parsed, true
		}
		if secs, err := strconv.ParseFloat(d, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}
