package oracle

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
)

type RootCheck struct {
	Intermediate string  `yaml:"intermediate"`
	Outcome      Outcome `yaml:"outcome"`
}

type Vector struct {
	Intermediate string          `yaml:"intermediate"`
	EndEntity    string          `yaml:"endEntity"`
	Purpose      purpose.Purpose `yaml:"purpose"`
	Outcome      Outcome         `yaml:"outcome"`
}

// DecisionTable holds every expected result of a generation run, ordered
// the same way the emitter writes them.
type DecisionTable struct {
	RootChecks []RootCheck `yaml:"rootChecks"`
	Vectors    []Vector    `yaml:"vectors"`
}

func Table(set *eku.Set, purposes []purpose.Purpose) (*DecisionTable, error) {
	cs := set.Combinations()

	t := &DecisionTable{
		RootChecks: make([]RootCheck, 0, len(cs)),
		Vectors:    make([]Vector, 0, len(cs)*len(cs)*len(purposes)),
	}
	for _, ic := range cs {
		t.RootChecks = append(t.RootChecks, RootCheck{
			Intermediate: ic.Name,
			Outcome:      DecideRoot(ic),
		})

		for _, ec := range cs {
			for _, p := range purposes {
				o, err := Decide(ic, ec, p)
				if err != nil {
					return nil, fmt.Errorf("decide(%s, %s, %v): %w", ic.Name, ec.Name, p, err)
				}
				t.Vectors = append(t.Vectors, Vector{
					Intermediate: ic.Name,
					EndEntity:    ec.Name,
					Purpose:      p,
					Outcome:      o,
				})
			}
		}
	}
	return t, nil
}

// WriteTSV writes one line per root check ("-" in the end-entity column)
// followed by one line per vector.
func (t *DecisionTable) WriteTSV(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "intermediate\tendEntity\tpurpose\toutcome\n"); err != nil {
		return err
	}
	for _, rc := range t.RootChecks {
		if _, err := fmt.Fprintf(w, "%s\t-\t%v\t%s\n", rc.Intermediate, purpose.SSLCA, rc.Outcome.Token()); err != nil {
			return err
		}
	}
	for _, v := range t.Vectors {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", v.Intermediate, v.EndEntity, v.Purpose, v.Outcome.Token()); err != nil {
			return err
		}
	}
	return nil
}

func (t *DecisionTable) WriteYAML(w io.Writer) error {
	bs, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("Failed to marshal decision table to yaml: %w", err)
	}
	if _, err := w.Write(bs); err != nil {
		return err
	}
	return nil
}

// Counts tallies the vectors by outcome.
func (t *DecisionTable) Counts() map[Outcome]int {
	m := make(map[Outcome]int)
	for _, rc := range t.RootChecks {
		m[rc.Outcome]++
	}
	for _, v := range t.Vectors {
		m[v.Outcome]++
	}
	return m
}
