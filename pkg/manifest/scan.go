package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// member is one key/value pair of a JSON object, located by byte offsets
// into the document.
type member struct {
	key      string
	keyStart int // opening quote of the key
	keyEnd   int // just past the closing quote
	valStart int
	valEnd   int
}

// object is a JSON object located by the offsets of its braces.
type object struct {
	open, close int // positions of '{' and '}'
	members     []member
}

func (o *object) find(key string) (int, bool) {
	for i, m := range o.members {
		if m.key == key {
			return i, true
		}
	}
	return -1, false
}

// scanObject reads the object spanning data[start:end]. Offsets in the
// result are relative to data.
func scanObject(data []byte, start, end int) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data[start:end]))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object at offset %d", start)
	}
	obj := &object{open: start + bytes.IndexByte(data[start:end], '{')}

	for dec.More() {
		before := int(dec.InputOffset())
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a key at offset %d", start+before)
		}
		keyEnd := int(dec.InputOffset())
		keyStart := bytes.IndexByte(data[start+before:start+keyEnd], '"')

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		valEnd := int(dec.InputOffset())
		obj.members = append(obj.members, member{
			key:      key,
			keyStart: start + before + keyStart,
			keyEnd:   start + keyEnd,
			valStart: start + valEnd - len(raw),
			valEnd:   start + valEnd,
		})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	obj.close = start + int(dec.InputOffset()) - 1
	return obj, nil
}

// lineIndent returns the whitespace between the start of pos's line and
// pos. ok is false when something other than whitespace precedes pos on
// its line.
func lineIndent(data []byte, pos int) (indent []byte, ok bool) {
	i := pos
	for i > 0 && (data[i-1] == ' ' || data[i-1] == '\t') {
		i--
	}
	if i > 0 && data[i-1] != '\n' {
		return nil, false
	}
	return data[i:pos], true
}
