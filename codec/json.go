package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// GoJSON encodes values as JSON with github.com/goccy/go-json. It is the
// default codec.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }

// JSON encodes values with encoding/json. Its output is interchangeable with
// GoJSON, so either can read snapshots written by the other.
//
// Slot values round-trip through JSON: unexported fields, funcs and channels
// are not preserved. Implement Codec for anything else.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }
