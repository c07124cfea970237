package dataset

import "slices"

// flagSet is a set of strings that remembers insertion order, which is the
// order it is written to disk.
type flagSet struct {
	items []string
	index map[string]struct{}
}

func newFlagSet(items []string) *flagSet {
	f := &flagSet{index: make(map[string]struct{}, len(items))}
	for _, s := range items {
		f.add(s)
	}
	return f
}

func (f *flagSet) has(s string) bool {
	_, ok := f.index[s]
	return ok
}

// add reports whether s was added.
func (f *flagSet) add(s string) bool {
	if f.has(s) {
		return false
	}
	f.index[s] = struct{}{}
	f.items = append(f.items, s)
	return true
}

// remove returns the position s had, or -1 if it was not a member.
func (f *flagSet) remove(s string) int {
	if !f.has(s) {
		return -1
	}
	delete(f.index, s)
	i := slices.Index(f.items, s)
	f.items = slices.Delete(f.items, i, i+1)
	return i
}

// insert puts s back at position i. It undoes a remove.
func (f *flagSet) insert(i int, s string) {
	if f.has(s) {
		return
	}
	f.index[s] = struct{}{}
	f.items = slices.Insert(f.items, i, s)
}

func (f *flagSet) len() int {
	return len(f.items)
}

func (f *flagSet) list() []string {
	return append([]string{}, f.items...)
}
