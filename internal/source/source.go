// Package source tracks where tokens came from: a small registry of input
// names (terminal, loaded files) and line/column locations within them.
package source

import "fmt"

// FileID indexes a registered input source.
type FileID int16

// NoFile marks a location with no registered source.
const NoFile FileID = -1

// Location names a line and column within a registered source.
type Location struct {
	File FileID
	Line int
	Col  int
}

func (loc Location) String() string {
	if loc.File == NoFile {
		return fmt.Sprintf("%v:%v", loc.Line, loc.Col)
	}
	return fmt.Sprintf("#%v:%v:%v", int(loc.File), loc.Line, loc.Col)
}

// Map registers input sources and resolves their names.
type Map struct {
	names []string
}

// Add registers a source name and returns its id.
func (m *Map) Add(name string) FileID {
	m.names = append(m.names, name)
	return FileID(len(m.names) - 1)
}

// Name returns the registered name for id, or "" if unknown.
func (m *Map) Name(id FileID) string {
	if i := int(id); i >= 0 && i < len(m.names) {
		return m.names[i]
	}
	return ""
}

// Resolve formats loc with its source name when one is registered.
func (m *Map) Resolve(loc Location) string {
	if name := m.Name(loc.File); name != "" {
		return fmt.Sprintf("%v:%v:%v", name, loc.Line, loc.Col)
	}
	return loc.String()
}
