package vars

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a story variable: an integer, a boolean flag or a short string tag.
// Values are comparable with ==.
type Value struct {
	kind Kind
	num  int
	flag bool
	str  string
}

func Int(n int) Value       { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value     { return Value{kind: KindBool, flag: b} }
func String(s string) Value { return Value{kind: KindString, str: s} }

func (v Value) Kind() Kind { return v.kind }

// Int returns the numeric value, or 0 for non-numeric values.
func (v Value) Int() int {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Bool returns the flag value. Numbers are true when non-zero and strings when non-empty.
func (v Value) Bool() bool {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindNumber:
		return v.num != 0
	default:
		return v.str != ""
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindString:
		return v.str
	default:
		return strconv.Itoa(v.num)
	}
}

// Interface returns the value as a plain Go value (int, bool or string).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindString:
		return v.str
	default:
		return v.num
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty variable value")
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("invalid variable value %s: %w", data, err)
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid variable value %s: %w", data, err)
		}
		*v = String(s)
	default:
		i, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("variable value %s is not an integer, bool or string", data)
		}
		*v = Int(i)
	}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: variable value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!int":
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*v = Int(n)
	case "!!str":
		*v = String(node.Value)
	default:
		return fmt.Errorf("line %d: unsupported variable value %q", node.Line, node.Value)
	}
	return nil
}
