package slideshow

import (
	"fmt"
	"sort"
)

// FileSet is a set of file names within the slideshow directory.
type FileSet map[string]struct{}

// NewFileSet creates a FileSet containing `names`.
func NewFileSet(names ...string) FileSet {
	set := FileSet{}
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains returns whether `name` is in the set.
func (set FileSet) Contains(name string) bool {
	_, ok := set[name]
	return ok
}

// Names returns the sorted contents of the set.
func (set FileSet) Names() []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Diff returns the files that are in `target` but not in `set`, and the files
// that are in `set` but not in `target`. Both results are sorted.
func (set FileSet) Diff(target FileSet) (added, removed []string) {
	for name := range target {
		if !set.Contains(name) {
			added = append(added, name)
		}
	}
	for name := range set {
		if !target.Contains(name) {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// ChangeEvent describes a change to the set of slides.
type ChangeEvent struct {
	Added   []string
	Removed []string
}

// truncateSlice truncates the given slice of strings to the given length. If
// the slice is longer than `length`, a message is appended saying how many
// more items are in the slice.
func truncateSlice(slc []string, length int) (truncated []string) {
	if len(slc) <= length {
		return slc
	}
	msg := fmt.Sprintf("... %d more ...", len(slc)-length)
	return append(append([]string(nil), slc[:length]...), msg)
}
