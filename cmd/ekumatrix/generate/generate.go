package generate

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/app/appflags"
	"github.com/IPA-CyberLab/ekumatrix/emitter"
)

func Action(c *cli.Context) (err error) {
	af, err := appflags.FromContext(c)
	if err != nil {
		return err
	}
	cfg, err := af.EmitterConfig()
	if err != nil {
		return err
	}

	env, cleanup, err := emitter.NewEnvironment(cfg, zap.L())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, cleanup()) }()

	return emitter.Run(c.Context, env, cfg)
}

var Command = &cli.Command{
	Name:  "generate",
	Usage: "Issue the certificate matrix and write the test script. This is the default command.",
	UsageText: `ekumatrix [global options] generate
   ekumatrix --no-regenerate generate   --- rewrite the script only, reusing certificates on disk.`,
	Action: Action,
}
