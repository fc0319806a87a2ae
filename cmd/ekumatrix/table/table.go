package table

import (
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/oracle"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
)

func Action(c *cli.Context) (err error) {
	slog := zap.S()

	ft, err := FormatTypeFromString(c.String("format"))
	if err != nil {
		return err
	}

	dt, err := oracle.Table(eku.Enumerate(eku.Atoms), purpose.All)
	if err != nil {
		return err
	}

	var w io.Writer
	outfilestr := c.String("file")
	if outfilestr == "-" {
		w = c.App.Writer
	} else {
		wf, err := NewIfChangedWriteFile(outfilestr)
		if err != nil {
			return err
		}
		defer func() {
			changed := wf.Changed()
			if cerr := wf.Close(); cerr != nil {
				err = multierr.Append(err, cerr)
				return
			}
			if err == nil {
				slog.Infow("Wrote decision table.", "path", outfilestr, "changed", changed)
			}
		}()

		w = wf
	}

	return ft.Write(w, dt)
}

var Command = &cli.Command{
	Name:  "table",
	Usage: "Print the expected result of every check without issuing any certificate.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format. (tsv, yaml)",
			Value: "tsv",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Write output to specified file.",
			Value:   "-",
		},
	},
	Action: Action,
}
