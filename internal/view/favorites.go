package view

// Favorites is an insertion-ordered set of city names.
type Favorites struct {
	names []string
}

func (f *Favorites) Contains(name string) bool {
	for _, n := range f.names {
		if n == name {
			return true
		}
	}
	return false
}

// Add appends name unless it is already present.
func (f *Favorites) Add(name string) bool {
	if f.Contains(name) {
		return false
	}
	f.names = append(f.names, name)
	return true
}

func (f *Favorites) Len() int { return len(f.names) }

func (f *Favorites) List() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}
