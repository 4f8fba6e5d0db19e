package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeviceID identifies a meter. Numeric ids are sent to the API as JSON numbers,
// quoted ids as JSON strings.
type DeviceID struct {
	value   string
	numeric bool
}

// NewDeviceID parses a single id literal: 101 is numeric, '101' or "abc" are strings.
func NewDeviceID(literal string) (DeviceID, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return DeviceID{}, errors.New("empty device id")
	}
	if len(literal) >= 2 && (literal[0] == '\'' || literal[0] == '"') && literal[len(literal)-1] == literal[0] {
		return DeviceID{value: literal[1 : len(literal)-1]}, nil
	}
	if _, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return DeviceID{value: literal, numeric: true}, nil
	}
	return DeviceID{value: literal}, nil
}

// String returns the id without quoting.
func (d DeviceID) String() string {
	return d.value
}

// MarshalJSON implements json.Marshaler.
func (d DeviceID) MarshalJSON() ([]byte, error) {
	if d.numeric {
		return []byte(d.value), nil
	}
	return json.Marshal(d.value)
}

// UnmarshalYAML keeps integer scalars numeric and everything else as strings.
func (d *DeviceID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("device id: expected scalar, got %v", node.ShortTag())
	}
	if node.Value == "" {
		return errors.New("empty device id")
	}
	_, err := strconv.ParseInt(node.Value, 10, 64)
	*d = DeviceID{value: node.Value, numeric: node.ShortTag() == "!!int" && err == nil}
	return nil
}

// DeviceIDs is the ordered device id list.
type DeviceIDs []DeviceID

// UnmarshalText parses list literals such as "[101, 102]" or "['a', 'b']".
func (ids *DeviceIDs) UnmarshalText(text []byte) error {
	body := strings.TrimSpace(string(text))
	body = strings.TrimPrefix(body, "[")
	body = strings.TrimSuffix(body, "]")

	parsed := DeviceIDs{}
	for _, part := range strings.Split(body, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := NewDeviceID(part)
		if err != nil {
			return err
		}
		parsed = append(parsed, id)
	}
	*ids = parsed
	return nil
}
