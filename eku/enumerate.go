package eku

import "sort"

// Set is the catalog of combinations produced by Enumerate.
type Set struct {
	byName map[string]Combination
	names  []string
}

// Enumerate builds NONE, every single atom, every unordered pair of distinct
// atoms and one combination holding all atoms. Combinations of size 3
// through N-1 are never generated to keep the matrix tractable.
//
// The result does not depend on the order of atoms. Duplicates are ignored.
func Enumerate(atoms []Atom) *Set {
	uniq := make([]Atom, 0, len(atoms))
	seen := make(map[Atom]struct{})
	for _, a := range atoms {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		uniq = append(uniq, a)
	}
	sortAtoms(uniq)

	s := &Set{byName: make(map[string]Combination)}
	s.add(None)
	for _, a := range uniq {
		s.add(newCombination(KindSingle, a))
	}
	for i := range uniq {
		for j := i + 1; j < len(uniq); j++ {
			s.add(newCombination(KindPair, uniq[i], uniq[j]))
		}
	}
	if len(uniq) > 0 {
		// Overwrites the single/pair entry of the same name when N < 3.
		s.add(newCombination(KindAll, uniq...))
	}

	s.names = make([]string, 0, len(s.byName))
	for name := range s.byName {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	return s
}

func (s *Set) add(c Combination) {
	s.byName[c.Name] = c
}

// Names returns the combination names in lexicographic order.
func (s *Set) Names() []string {
	return append([]string{}, s.names...)
}

func (s *Set) Get(name string) (Combination, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Combinations returns all combinations ordered by name.
func (s *Set) Combinations() []Combination {
	cs := make([]Combination, 0, len(s.names))
	for _, name := range s.names {
		cs = append(cs, s.byName[name])
	}
	return cs
}

func (s *Set) Len() int {
	return len(s.names)
}
