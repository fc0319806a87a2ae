package eku

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NoneName names the combination without an extendedKeyUsage extension.
const NoneName = "NONE"

const nameSeparator = "_"

type Kind int

const (
	KindNone Kind = iota
	KindSingle
	KindPair
	KindAll
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSingle:
		return "single"
	case KindPair:
		return "pair"
	case KindAll:
		return "all"
	default:
		return "unknown_kind"
	}
}

// Combination is a named set of atoms placed on a test certificate.
// Atoms are kept sorted by code.
type Combination struct {
	Name  string
	Kind  Kind
	Atoms []Atom
}

var None = Combination{Name: NoneName, Kind: KindNone}

func sortAtoms(as []Atom) {
	sort.Slice(as, func(i, j int) bool { return as[i].Code() < as[j].Code() })
}

// NameOf derives the combination name of the given atoms.
func NameOf(atoms []Atom) string {
	if len(atoms) == 0 {
		return NoneName
	}

	sorted := append([]Atom{}, atoms...)
	sortAtoms(sorted)

	codes := make([]string, 0, len(sorted))
	for _, a := range sorted {
		codes = append(codes, a.Code())
	}
	return strings.Join(codes, nameSeparator)
}

func newCombination(kind Kind, atoms ...Atom) Combination {
	sorted := append([]Atom{}, atoms...)
	sortAtoms(sorted)
	return Combination{
		Name:  NameOf(sorted),
		Kind:  kind,
		Atoms: sorted,
	}
}

var ErrEmptyName = errors.New("eku: empty combination name")

// ParseName maps a combination name back to its atoms.
func ParseName(name string) (Combination, error) {
	if name == "" {
		return Combination{}, ErrEmptyName
	}
	if name == NoneName {
		return None, nil
	}

	codes := strings.Split(name, nameSeparator)
	atoms := make([]Atom, 0, len(codes))
	seen := make(map[Atom]struct{})
	for _, code := range codes {
		a, err := AtomFromCode(code)
		if err != nil {
			return Combination{}, fmt.Errorf("eku: parse %q: %w", name, err)
		}
		if _, ok := seen[a]; ok {
			return Combination{}, fmt.Errorf("eku: parse %q: duplicate atom %s", name, code)
		}
		seen[a] = struct{}{}
		atoms = append(atoms, a)
	}

	c := newCombination(KindSingle, atoms...)
	if c.Name != name {
		return Combination{}, fmt.Errorf("eku: parse %q: atoms are not in canonical order, expected %q", name, c.Name)
	}
	// Only the all-atoms combination has more than two atoms.
	switch len(atoms) {
	case 1:
		c.Kind = KindSingle
	case 2:
		c.Kind = KindPair
	default:
		c.Kind = KindAll
	}
	return c, nil
}

func (c Combination) IsNone() bool {
	return len(c.Atoms) == 0
}

func (c Combination) Has(a Atom) bool {
	for _, e := range c.Atoms {
		if e == a {
			return true
		}
	}
	return false
}

// CompatibleWith reports whether a certificate carrying c may be used for a.
// An absent extension never disqualifies a certificate.
func (c Combination) CompatibleWith(a Atom) bool {
	return c.IsNone() || c.Has(a)
}

// ExtKeyUsageValue renders the value part of the extendedKeyUsage line.
// Pairs are joined with "," and the all-atoms combination with ", ".
func (c Combination) ExtKeyUsageValue() string {
	vs := make([]string, 0, len(c.Atoms))
	for _, a := range c.Atoms {
		vs = append(vs, a.Value())
	}
	if c.Kind == KindAll {
		return strings.Join(vs, ", ")
	}
	return strings.Join(vs, ",")
}

func (c Combination) String() string {
	return c.Name
}
