package app

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/app/appflags"
	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/generate"
	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/show"
	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/table"
	"github.com/IPA-CyberLab/ekumatrix/structflags"
	"github.com/IPA-CyberLab/ekumatrix/version"
)

const OutDirEnvVar = "EKUMATRIX_OUTDIR"

func mustFindFlagByName(fs []cli.Flag, name string) cli.Flag {
	for _, f := range fs {
		if f.Names()[0] == name {
			return f
		}
	}

	zap.S().Panicf("Failed to find flag of name %q", name)
	return nil
}

func readConfig(path string) ([]byte, error) {
	var r io.ReadCloser
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("Failed to open specified config file %q: %w", path, err)
		}
		r = f
	}

	bs, err := io.ReadAll(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("Failed to read specified config file %q: %w", path, err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("Failed to close specified config file %q: %w", path, err)
	}

	if strings.TrimSpace(string(bs)) == "" {
		return nil, fmt.Errorf("The specified config file %s was empty", path)
	}
	return bs, nil
}

func newLogger(af *appflags.AppFlags) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableCaller = !af.LogLocation
	if !af.LogJson {
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = ""

		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}
	if af.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return cfg.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.DPanicLevel)))
}

func New() *cli.App {
	app := cli.NewApp()
	app.Name = "ekumatrix"
	app.Usage = "Generate the EKU/KU certificate matrix and the verification test script"
	app.Version = fmt.Sprintf("%s.%s", version.Version, version.Commit)
	app.EnableBashCompletion = true

	af := appflags.Default()
	app.Flags = structflags.MustPopulateFlagsFromStruct(af)
	app.Metadata = map[string]interface{}{
		"AppFlags": af,
	}

	outdirFlag := mustFindFlagByName(app.Flags, "outdir")
	outdirPathFlag := outdirFlag.(*cli.PathFlag)
	outdirPathFlag.EnvVars = []string{OutDirEnvVar}

	app.Commands = []*cli.Command{
		generate.Command,
		table.Command,
		show.Command,
	}
	app.Action = generate.Action

	BeforeImpl := func(c *cli.Context) error {
		// Tests replace app.Metadata wholesale.
		app.Metadata["AppFlags"] = af

		loggeri, injected := app.Metadata["Logger"]
		var logger *zap.Logger
		if injected {
			logger = loggeri.(*zap.Logger)
		} else {
			// Built from the defaults first so that flag errors are reported.
			var err error
			logger, err = newLogger(appflags.Default())
			if err != nil {
				return err
			}
		}
		zap.ReplaceGlobals(logger)

		if err := structflags.PopulateStructFromCliContext(af, c); err != nil {
			return err
		}

		if !injected {
			var err error
			logger, err = newLogger(af)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
		}

		if af.Config != "" {
			bs, err := readConfig(af.Config)
			if err != nil {
				return err
			}
			app.Metadata["config"] = bs

			dec := yaml.NewDecoder(bytes.NewReader(bs))
			dec.KnownFields(true)
			if err := dec.Decode(af); err != nil {
				return fmt.Errorf("Failed to yaml.Unmarshal AppFlags: %w", err)
			}

			// Flags given explicitly win over the config file.
			if err := structflags.PopulateStructFromCliContext(af, c); err != nil {
				return err
			}
		}

		logger.Debug("Effective flags", zap.Any("flags", af))
		return nil
	}
	app.Before = func(c *cli.Context) error {
		if err := BeforeImpl(c); err != nil {
			// Print error message to stderr
			app.Writer = app.ErrWriter

			// Suppress help message on app.Before() failure.
			cli.HelpPrinter = func(_ io.Writer, _ string, _ interface{}) {}
			return err
		}

		return nil
	}
	app.After = func(c *cli.Context) error {
		zap.L().Sync()
		return nil
	}

	return app
}
