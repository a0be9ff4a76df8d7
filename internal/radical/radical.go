// internal/radical/radical.go
//
// Read-only kanji → radical index.
// Responsibilities:
//   - Parse kradfile-style lines ("漢 : 氵 艹 口 夫") into per-kanji radical sets.
//   - Answer RadicalsOf lookups; unknown kanji yield an empty set.
//
// The index is built once at startup and never mutated afterwards, so
// lookups need no locking.

package radical

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/webutan/lain/assets"
)

// Set is a set of radical components.
type Set map[string]struct{}

// NewSet builds a Set from its members.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(x string) bool {
	_, ok := s[x]
	return ok
}

// Intersect returns the radicals present in both sets.
func (s Set) Intersect(o Set) Set {
	out := make(Set)
	for x := range s {
		if o.Has(x) {
			out[x] = struct{}{}
		}
	}
	return out
}

// Union adds every member of o to s.
func (s Set) Union(o Set) {
	for x := range o {
		s[x] = struct{}{}
	}
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Union(s)
	return out
}

// Sorted lists the members in a stable order for rendering.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for x := range s {
		out = append(out, x)
	}
	sort.Strings(out)
	return out
}

// Index maps kanji to their radical components.
type Index struct {
	m map[rune]Set
}

// Load parses a radical mapping. Blank lines and lines starting with # are skipped.
func Load(r io.Reader) (*Index, error) {
	idx := &Index{m: make(map[rune]Set)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		head, tail, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("radical: line %d: missing ':'", line)
		}
		k := []rune(strings.TrimSpace(head))
		if len(k) != 1 {
			return nil, fmt.Errorf("radical: line %d: expected one kanji, got %q", line, string(k))
		}
		set := idx.m[k[0]]
		if set == nil {
			set = make(Set)
			idx.m[k[0]] = set
		}
		for _, part := range strings.Fields(tail) {
			set[part] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("radical: read: %w", err)
	}
	return idx, nil
}

// LoadFile loads the mapping from path, or the embedded default when path is empty.
func LoadFile(path string) (*Index, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if path == "" {
		rc, err = assets.Radicals()
	} else {
		rc, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Load(rc)
}

// RadicalsOf returns the radicals of k. The returned set must not be modified.
func (i *Index) RadicalsOf(k rune) Set {
	if i == nil {
		return Set{}
	}
	if s, ok := i.m[k]; ok {
		return s
	}
	return Set{}
}

// Len reports how many kanji are indexed.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.m)
}
