package manifest

import (
	"bytes"
	"encoding/json"
)

const defaultIndent = "  "

func (m *Manifest) splice(start, end int, text []byte) {
	out := make([]byte, 0, len(m.data)-(end-start)+len(text))
	out = append(out, m.data[:start]...)
	out = append(out, text...)
	out = append(out, m.data[end:]...)
	m.data = out
	m.dirty = true
}

func quote(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// remove deletes key from section together with one neighbouring comma.
func (m *Manifest) remove(section, key string) error {
	obj, err := m.section(section)
	if err != nil || obj == nil {
		return err
	}
	i, ok := obj.find(key)
	if !ok {
		return nil
	}
	mem := obj.members[i]
	switch {
	case len(obj.members) == 1:
		m.splice(obj.open+1, obj.close, nil)
	case i < len(obj.members)-1:
		m.splice(mem.keyStart, obj.members[i+1].keyStart, nil)
	default:
		m.splice(obj.members[i-1].valEnd, mem.valEnd, nil)
	}
	return nil
}

// put sets key to the string value in section, creating the section at the
// end of the document when it does not exist.
func (m *Manifest) put(section, key, value string) error {
	obj, err := m.section(section)
	if err != nil {
		return err
	}
	if obj == nil {
		return m.addSection(section, key, value)
	}

	val := quote(value)
	if i, ok := obj.find(key); ok {
		mem := obj.members[i]
		if !bytes.Equal(m.data[mem.valStart:mem.valEnd], val) {
			m.splice(mem.valStart, mem.valEnd, val)
		}
		return nil
	}

	if len(obj.members) == 0 {
		text := string(m.entry(key, value, ": "))
		block := "{" + text + "}"
		if indent, ok := lineIndent(m.data, m.memberStart(section)); ok {
			block = "{\n" + string(indent) + m.unit() + text + "\n" + string(indent) + "}"
		}
		m.splice(obj.open, obj.close+1, []byte(block))
		return nil
	}

	first := obj.members[0]
	sep := string(m.data[first.keyEnd:first.valStart])
	entry := m.entry(key, value, sep)

	pos := len(obj.members)
	for j, mem := range obj.members {
		if mem.key > key {
			pos = j
			break
		}
	}
	gap := m.memberGap(obj)
	if pos < len(obj.members) {
		next := obj.members[pos]
		text := append(append(entry, ','), gap...)
		m.splice(next.keyStart, next.keyStart, text)
		return nil
	}

	last := obj.members[len(obj.members)-1]
	text := append(append([]byte{','}, gap...), entry...)
	m.splice(last.valEnd, last.valEnd, text)
	return nil
}

// memberGap returns the whitespace that separates members of obj, without
// the comma: the gap between the first two members, the lead-in of a lone
// member on its own line, or a single space for a one-line object.
func (m *Manifest) memberGap(obj *object) []byte {
	if len(obj.members) >= 2 {
		gap := m.data[obj.members[0].valEnd:obj.members[1].keyStart]
		return gap[bytes.IndexByte(gap, ',')+1:]
	}
	lead := m.data[obj.open+1 : obj.members[0].keyStart]
	if bytes.IndexByte(lead, '\n') >= 0 {
		return lead
	}
	return []byte(" ")
}

func (m *Manifest) entry(key, value, sep string) []byte {
	out := quote(key)
	out = append(out, sep...)
	return append(out, quote(value)...)
}

// memberStart returns the key offset of a top-level member.
func (m *Manifest) memberStart(name string) int {
	root, err := m.root()
	if err != nil {
		return 0
	}
	if i, ok := root.find(name); ok {
		return root.members[i].keyStart
	}
	return 0
}

// unit guesses one indentation level from the first top-level member.
func (m *Manifest) unit() string {
	root, err := m.root()
	if err != nil || len(root.members) == 0 {
		return defaultIndent
	}
	if indent, ok := lineIndent(m.data, root.members[0].keyStart); ok && len(indent) > 0 {
		return string(indent)
	}
	return defaultIndent
}

func (m *Manifest) addSection(section, key, value string) error {
	root, err := m.root()
	if err != nil {
		return err
	}
	unit := m.unit()
	body := "{\n" + unit + unit + string(m.entry(key, value, ": ")) + "\n" + unit + "}"
	text := string(quote(section)) + ": " + body

	if len(root.members) == 0 {
		m.splice(root.open, root.close+1, []byte("{\n"+unit+text+"\n}"))
		return nil
	}
	last := root.members[len(root.members)-1]
	m.splice(last.valEnd, last.valEnd, []byte(",\n"+unit+text))
	return nil
}
