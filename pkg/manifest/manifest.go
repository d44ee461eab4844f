// Package manifest pins resolved versions in a package.json file.
//
// Edits are made on the raw bytes: only the dependency entries being
// changed are rewritten, so formatting, key order and every unrelated field
// survive untouched. Writes are atomic.
package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/integrations/npm"
	"github.com/matzehuels/stackgate/pkg/resolve"
)

// Dependency sections, in the order Set looks for an existing entry.
var Sections = []string{"dependencies", "devDependencies", "optionalDependencies"}

// Entry is one dependency declaration.
type Entry struct {
	Section string
	Name    string
	Spec    string
}

// Manifest is a package.json document held in memory.
type Manifest struct {
	path  string
	perm  os.FileMode
	data  []byte
	dirty bool
}

// Load reads the package.json at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "manifest %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %s", path)
	}
	m.path = path
	m.perm = 0o644
	if info, err := os.Stat(path); err == nil {
		m.perm = info.Mode().Perm()
	}
	return m, nil
}

// Parse wraps an in-memory document. It must be a JSON object.
func Parse(data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "not valid JSON")
	}
	m := &Manifest{data: append([]byte(nil), data...)}
	if _, err := m.root(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "top level is not an object")
	}
	return m, nil
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// Bytes returns the current document.
func (m *Manifest) Bytes() []byte { return m.data }

// Dirty reports whether Set changed the document since it was loaded.
func (m *Manifest) Dirty() bool { return m.dirty }

func (m *Manifest) root() (*object, error) {
	start := len(m.data) - len(bytes.TrimLeft(m.data, " \t\r\n"))
	return scanObject(m.data, start, len(m.data))
}

// section returns the object stored under name at the top level.
func (m *Manifest) section(name string) (*object, error) {
	root, err := m.root()
	if err != nil {
		return nil, err
	}
	i, ok := root.find(name)
	if !ok {
		return nil, nil
	}
	mem := root.members[i]
	if m.data[mem.valStart] != '{' {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%q is not an object", name)
	}
	return scanObject(m.data, mem.valStart, mem.valEnd)
}

// Lookup returns the entry declaring name, searching Sections in order.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	for _, sec := range Sections {
		obj, err := m.section(sec)
		if err != nil || obj == nil {
			continue
		}
		if i, ok := obj.find(name); ok {
			var spec string
			mem := obj.members[i]
			_ = json.Unmarshal(m.data[mem.valStart:mem.valEnd], &spec)
			return Entry{Section: sec, Name: name, Spec: spec}, true
		}
	}
	return Entry{}, false
}

// Requests lists the registry dependencies of "dependencies" and
// "devDependencies" in document order. Entries in the private scope and
// specifiers that do not name registry versions (paths, URLs, git sources,
// aliases) are skipped.
func (m *Manifest) Requests(scope string) []Entry {
	var out []Entry
	for _, sec := range Sections[:2] {
		obj, err := m.section(sec)
		if err != nil || obj == nil {
			continue
		}
		for _, mem := range obj.members {
			var spec string
			if json.Unmarshal(m.data[mem.valStart:mem.valEnd], &spec) != nil {
				continue
			}
			if scope != "" && strings.HasPrefix(mem.key, scope+"/") {
				continue
			}
			if !resolve.IsRegistrySpec(spec) {
				continue
			}
			out = append(out, Entry{Section: sec, Name: mem.key, Spec: spec})
		}
	}
	return out
}

// Set pins name to version. The entry stays in the section that already
// declares name (or its private-scope alias), defaulting to
// "dependencies"; any alias entry under scope is removed. Setting the
// version an entry already has changes nothing.
func (m *Manifest) Set(name, version, scope string) error {
	alias := ""
	if scope != "" {
		alias = npm.ScopedName(scope, name)
	}

	target := ""
	if e, ok := m.Lookup(name); ok {
		target = e.Section
	} else if alias != "" {
		if e, ok := m.Lookup(alias); ok {
			target = e.Section
		}
	}
	if target == "" {
		target = Sections[0]
	}

	if alias != "" && alias != name {
		for _, sec := range Sections {
			if err := m.remove(sec, alias); err != nil {
				return err
			}
		}
	}
	return m.put(target, name, version)
}

// Save writes the document back to its file if it changed.
func (m *Manifest) Save() error {
	if !m.dirty {
		return nil
	}
	if m.path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest has no file path")
	}
	if err := writeAtomic(m.path, m.data, m.perm); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write manifest %s", m.path)
	}
	m.dirty = false
	return nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".package.json.*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
