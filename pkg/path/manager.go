package path

// Manager anchors caller-supplied paths under a fixed base path.
//
// A Manager is stateless beyond its base and is safe for concurrent use.
// Resolution never fails: absolute inputs ignore the base entirely, relative
// inputs are joined onto it.
type Manager struct {
	base Path
}

// NewManager returns a Manager anchored at base. An empty base means the
// root "/".
func NewManager(base string) *Manager {
	if base == "" {
		return &Manager{base: Root}
	}
	return &Manager{base: New(base)}
}

// DefaultManager returns a Manager anchored at the root.
func DefaultManager() *Manager {
	return &Manager{base: Root}
}

// Base returns the base path the manager resolves against.
func (m *Manager) Base() Path {
	return m.base
}

// Resolve turns input into a normalized Path anchored at the base.
//
//	NewManager("/base").Resolve("x/y")  // "/base/x/y"
//	NewManager("/base").Resolve("/x/y") // "/x/y"
func (m *Manager) Resolve(input string) Path {
	return m.base.Join(New(input))
}

// ResolvePath is Resolve for an already constructed Path.
func (m *Manager) ResolvePath(p Path) Path {
	return m.base.Join(p)
}
