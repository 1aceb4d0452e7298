package nutrition

import (
	"bytes"

	"github.com/antonholmquist/jason"
)

// Payload is a raw analysis document as returned by the analysis service.
// No field is guaranteed to be present.
type Payload struct {
	obj     *jason.Object
	missing bool
}

// ParsePayload wraps a raw document. It never fails: an empty body, JSON
// null, invalid JSON or a non-object document yield an empty payload that
// reports Missing.
func ParsePayload(data []byte) Payload {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyPayload(true)
	}
	obj, err := jason.NewObjectFromBytes(trimmed)
	if err != nil {
		return emptyPayload(true)
	}
	return Payload{obj: obj}
}

func emptyPayload(missing bool) Payload {
	obj, _ := jason.NewObjectFromBytes([]byte("{}"))
	return Payload{obj: obj, missing: missing}
}

// Missing reports whether the document was absent, null or not a JSON object.
func (p Payload) Missing() bool {
	return p.missing || p.obj == nil
}

// root returns the document object, never nil.
func (p Payload) root() *jason.Object {
	if p.obj == nil {
		return emptyPayload(true).obj
	}
	return p.obj
}
