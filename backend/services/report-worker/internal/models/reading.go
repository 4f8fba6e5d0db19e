package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value keeps a raw JSON token from the telemetry API so it can be rendered verbatim.
type Value struct {
	raw json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	v.raw = append(v.raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Present() {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Present reports whether the field was sent with a non-null value.
func (v Value) Present() bool {
	trimmed := bytes.TrimSpace(v.raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// String returns JSON strings unquoted and any other token as sent.
func (v Value) String() string {
	if !v.Present() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v.raw))
}

// NewValue builds a Value from any JSON-encodable input. Used by tests and fixtures.
func NewValue(in interface{}) Value {
	raw, err := json.Marshal(in)
	if err != nil {
		return Value{}
	}
	return Value{raw: raw}
}

// Reading is one device's daily consumption snapshot as returned by the log book API.
type Reading struct {
	SiteName           Value `json:"site_name"`
	DeviceFriendlyName Value `json:"device_friendly_name"`
	Time               Value `json:"time"`
	InitialFlow        Value `json:"INITIAL_FLOW"`
	FinalFlow          Value `json:"FINAL_FLOW"`
	TotalConsumption   Value `json:"TOTAL_CONSUMPTION"`
}

// Date returns the date portion of the reading timestamp.
func (r Reading) Date() string {
	date, _, _ := strings.Cut(r.Time.String(), "T")
	return date
}

// Validate returns an error naming the first missing field.
func (r Reading) Validate() error {
	fields := []struct {
		name  string
		value Value
	}{
		{"site_name", r.SiteName},
		{"device_friendly_name", r.DeviceFriendlyName},
		{"time", r.Time},
		{"INITIAL_FLOW", r.InitialFlow},
		{"FINAL_FLOW", r.FinalFlow},
		{"TOTAL_CONSUMPTION", r.TotalConsumption},
	}
	for _, f := range fields {
		if !f.value.Present() {
			return fmt.Errorf("missing field %q", f.name)
		}
	}
	return nil
}
