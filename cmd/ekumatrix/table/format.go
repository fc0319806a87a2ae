package table

import (
	"fmt"
	"io"

	"github.com/IPA-CyberLab/ekumatrix/oracle"
)

type FormatType int

const (
	FormatTSV FormatType = iota
	FormatYAML
)

func (t FormatType) String() string {
	switch t {
	case FormatTSV:
		return "tsv"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("unknown_formattype_%d", int(t))
	}
}

func FormatTypeFromString(s string) (FormatType, error) {
	switch s {
	case "tsv":
		return FormatTSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatTSV, fmt.Errorf("Unknown format %q.", s)
	}
}

func (t FormatType) Write(w io.Writer, dt *oracle.DecisionTable) error {
	switch t {
	case FormatTSV:
		return dt.WriteTSV(w)
	case FormatYAML:
		return dt.WriteYAML(w)
	default:
		return fmt.Errorf("Unknown format %v.", t)
	}
}
