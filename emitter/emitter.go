// Package emitter drives a generation run: it walks the combination
// catalog, has every certificate of the chain issued and writes the test
// script asserting the expected verification results.
package emitter

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/chain"
	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/exporter"
	"github.com/IPA-CyberLab/ekumatrix/issuer"
	"github.com/IPA-CyberLab/ekumatrix/oracle"
	"github.com/IPA-CyberLab/ekumatrix/period"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
	"github.com/IPA-CyberLab/ekumatrix/storage"
	"github.com/IPA-CyberLab/ekumatrix/storage/issuedb"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

const DefaultOutDir = "test_cert_eku"

type Config struct {
	// OutDir receives the DER artifacts. Its base name is also the directory
	// the script loads them from.
	OutDir     string
	ScriptPath string

	KeyType       wcrypto.KeyType
	Validity      period.ValidityPeriod
	Backend       string
	OpenSSLBinary string

	// NoRegenerate only rewrites the script and reuses the artifacts
	// already in OutDir.
	NoRegenerate bool
	KeepScratch  bool

	IssueDBPath     string
	MetricsTextfile string

	Atoms    []eku.Atom
	Purposes []purpose.Purpose
}

func DefaultConfig() *Config {
	return &Config{
		OutDir:        DefaultOutDir,
		KeyType:       wcrypto.DefaultKeyType,
		Validity:      period.Default,
		Backend:       issuer.BackendX509,
		OpenSSLBinary: issuer.DefaultOpenSSLBinary,
		Atoms:         eku.Atoms,
		Purposes:      purpose.All,
	}
}

// DefaultScriptPath returns the script path used when none is configured:
// the output dir name with ".js" appended.
func DefaultScriptPath(outDir string) string {
	return filepath.Clean(outDir) + ".js"
}

func (cfg *Config) Verify() error {
	if cfg.OutDir == "" {
		return fmt.Errorf("output dir must be specified")
	}
	if err := cfg.Validity.Verify(); err != nil {
		return err
	}
	for _, p := range []string{cfg.scriptPath(), cfg.IssueDBPath, cfg.MetricsTextfile} {
		if p == "" {
			continue
		}
		if err := storage.ValidateFile(p); err != nil {
			return err
		}
	}
	if len(cfg.Atoms) == 0 {
		return fmt.Errorf("no eku atoms configured")
	}
	for _, p := range cfg.Purposes {
		if _, err := purpose.RequiredAtom(p); err != nil {
			return err
		}
	}
	switch cfg.Backend {
	case issuer.BackendX509, issuer.BackendOpenSSL:
	default:
		return fmt.Errorf("unknown issuer backend %q", cfg.Backend)
	}
	return nil
}

func (cfg *Config) scriptPath() string {
	if cfg.ScriptPath != "" {
		return cfg.ScriptPath
	}
	return DefaultScriptPath(cfg.OutDir)
}

type Environment struct {
	Layout  *storage.Layout
	Issuer  issuer.Issuer
	IssueDB *issuedb.IssueDB
	// Stats defaults to a fresh registry over IssueDB when nil.
	Stats   *exporter.Stats
	Logger  *zap.Logger
}

// NewEnvironment creates the scratch dir and the issuer backend selected by
// cfg. The returned func removes the scratch dir unless cfg.KeepScratch.
func NewEnvironment(cfg *Config, logger *zap.Logger) (*Environment, func() error, error) {
	slog := logger.Sugar()

	if err := cfg.Verify(); err != nil {
		return nil, nil, err
	}

	scratch, removeScratch, err := storage.NewScratchDir()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error {
		if cfg.KeepScratch {
			slog.Infow("Keeping scratch dir.", "path", scratch)
			return nil
		}
		return removeScratch()
	}

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return nil, nil, multierr.Append(
			fmt.Errorf("os.MkdirAll(%q): %w", cfg.OutDir, err), cleanup())
	}
	l, err := storage.New(cfg.OutDir, scratch)
	if err != nil {
		return nil, nil, multierr.Append(err, cleanup())
	}

	var iss issuer.Issuer
	switch cfg.Backend {
	case issuer.BackendOpenSSL:
		iss = &issuer.OpenSSL{
			Layout: l,
			Binary: cfg.OpenSSLBinary,
			Logger: logger,
		}
	default:
		iss = &issuer.X509{
			Layout:  l,
			Randr:   rand.Reader,
			Logger:  logger,
			NowImpl: time.Now,
		}
	}

	db := issuedb.New(rand.Reader)
	env := &Environment{
		Layout:  l,
		Issuer:  iss,
		IssueDB: db,
		Stats:   exporter.NewStats(db, logger),
		Logger:  logger,
	}
	return env, cleanup, nil
}

type generator struct {
	ctx   context.Context
	env   *Environment
	cfg   *Config
	slog  *zap.SugaredLogger
	stats *exporter.Stats
	issue bool
}

func (g *generator) issueCert(r chain.Role, name string, c eku.Combination, signer *issuer.Artifact) (*issuer.Artifact, error) {
	if !g.issue {
		return nil, nil
	}

	text, err := chain.ExtensionText(r, c)
	if err != nil {
		return nil, err
	}

	var serial int64
	if r == chain.Root {
		serial, err = g.env.IssueDB.AllocateRootSerialNumber(name)
	} else {
		serial, err = g.env.IssueDB.AllocateSerialNumber(name)
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	a, err := g.env.Issuer.Issue(g.ctx, &issuer.Request{
		Serial:        serial,
		KeyType:       g.cfg.KeyType,
		Name:          name,
		ExtensionText: text,
		Issuer:        signer,
		Validity:      g.cfg.Validity,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to issue %v certificate %q: %w", r, name, err)
	}
	if err := g.env.IssueDB.IssueCertificate(serial); err != nil {
		return nil, err
	}
	g.stats.ObserveIssue(r, time.Since(start))
	return a, nil
}

// writeScript flushes whatever was written so far even when it fails, so an
// aborted run leaves a truncated script behind.
func (g *generator) writeScript(w io.Writer, set *eku.Set) (err error) {
	sw := newScriptWriter(w)
	defer func() {
		if ferr := sw.Err(); err == nil {
			err = ferr
		}
	}()

	root, err := g.issueCert(chain.Root, chain.RootName, eku.None, nil)
	if err != nil {
		return err
	}

	sw.Header(filepath.Base(filepath.Clean(g.cfg.OutDir)), chain.RootName)

	cs := set.Combinations()
	for _, ic := range cs {
		intName := chain.IntermediateName(ic)
		inter, err := g.issueCert(chain.Intermediate, intName, ic, root)
		if err != nil {
			return err
		}

		o := oracle.DecideRoot(ic)
		sw.RootCheck(intName, o)
		g.stats.ObserveVector(purpose.SSLCA, o)

		for _, ec := range cs {
			eeName := chain.EndEntityName(ec, ic)
			if _, err := g.issueCert(chain.EndEntity, eeName, ec, inter); err != nil {
				return err
			}

			for _, p := range g.cfg.Purposes {
				o, err := oracle.Decide(ic, ec, p)
				if err != nil {
					return err
				}
				sw.Vector(eeName, o, p)
				g.stats.ObserveVector(p, o)
			}
		}
		if err := sw.Err(); err != nil {
			return err
		}
	}

	sw.Footer()
	g.slog.Infow("Wrote assertions.", "count", sw.lines)
	return nil
}

// ArtifactNames lists every certificate a run over set produces, in
// issuance order.
func ArtifactNames(set *eku.Set) []string {
	cs := set.Combinations()
	names := make([]string, 0, 1+len(cs)+len(cs)*len(cs))
	names = append(names, chain.RootName)
	for _, ic := range cs {
		names = append(names, chain.IntermediateName(ic))
		for _, ec := range cs {
			names = append(names, chain.EndEntityName(ec, ic))
		}
	}
	return names
}

func Run(ctx context.Context, env *Environment, cfg *Config) (err error) {
	slog := env.Logger.Sugar()
	start := time.Now()

	if err := cfg.Verify(); err != nil {
		return err
	}

	unlock, err := env.Layout.Lock()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, unlock()) }()

	set := eku.Enumerate(cfg.Atoms)
	slog.Infow("Generating test vectors...",
		"combinations", set.Len(), "purposes", len(cfg.Purposes),
		"outdir", cfg.OutDir, "script", cfg.scriptPath(), "regenerate", !cfg.NoRegenerate)

	if cfg.NoRegenerate {
		if merr := env.Layout.MissingArtifacts(ArtifactNames(set)); merr != nil {
			for _, e := range multierr.Errors(merr) {
				slog.Warnw("Artifact referenced by the script is missing.", "err", e)
			}
		}
	}

	f, err := os.Create(cfg.scriptPath())
	if err != nil {
		return fmt.Errorf("Failed to create script file: %w", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	stats := env.Stats
	if stats == nil {
		stats = exporter.NewStats(env.IssueDB, env.Logger)
	}
	g := &generator{
		ctx:   ctx,
		env:   env,
		cfg:   cfg,
		slog:  slog,
		stats: stats,
		issue: !cfg.NoRegenerate,
	}
	if err := g.writeScript(f, set); err != nil {
		return err
	}

	if cfg.IssueDBPath != "" {
		if err := env.IssueDB.WriteJSON(cfg.IssueDBPath); err != nil {
			return err
		}
	}
	if cfg.MetricsTextfile != "" {
		if err := stats.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return err
		}
	}

	slog.Infow("Generating test vectors... Done.", "took", time.Since(start))
	return nil
}
