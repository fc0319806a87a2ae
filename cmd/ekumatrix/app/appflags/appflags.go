package appflags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IPA-CyberLab/ekumatrix/emitter"
	"github.com/IPA-CyberLab/ekumatrix/period"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

type AppFlags struct {
	OutDir          string                `yaml:"outDir" flags:"outdir,Directory receiving the DER certificates,o,path"`
	Script          string                `yaml:"script" flags:"script,Path of the generated test script (default: <outdir>.js),,path"`
	KeyType         wcrypto.KeyType       `yaml:"keyType" flags:"key-type,Key algorithm of issued certificates (rsa&comma; ecdsa)"`
	Validity        period.ValidityPeriod `yaml:"validity" flags:"validity,Validity of issued certificates (e.g. 10y&comma; 90d&comma; 20350101&comma; farfuture)"`
	Issuer          string                `yaml:"issuer" flags:"issuer,Certificate issuer backend (x509&comma; openssl)"`
	OpenSSL         string                `yaml:"openssl" flags:"openssl,openssl binary used by the openssl issuer,,path"`
	NoRegenerate    bool                  `yaml:"noRegenerate" flags:"no-regenerate,Only rewrite the script and reuse the certificates already in outdir"`
	KeepScratch     bool                  `yaml:"keepScratch" flags:"keep-scratch,Keep the scratch dir holding the private keys"`
	IssueDB         string                `yaml:"issueDB" flags:"issuedb,Write the serial numbers handed out to the specified json file,,path"`
	MetricsTextfile string                `yaml:"metricsTextfile" flags:"metrics-textfile,Write generation statistics in the prometheus text format,,path"`

	Config      string `yaml:"-" flags:"config,Read the specified YAML config file. Flags given on the command line take precedence.,,path"`
	LogJson     bool   `yaml:"-" flags:"log-json,Format logs in json"`
	LogLocation bool   `yaml:"-" flags:"log-location,Annotate logs with code location where the log was output"`
	Verbose     bool   `yaml:"-" flags:"verbose,Enable verbose output"`
}

func Default() *AppFlags {
	cfg := emitter.DefaultConfig()
	return &AppFlags{
		OutDir:   cfg.OutDir,
		KeyType:  cfg.KeyType,
		Validity: cfg.Validity,
		Issuer:   cfg.Backend,
		OpenSSL:  cfg.OpenSSLBinary,
	}
}

func (af *AppFlags) EmitterConfig() (*emitter.Config, error) {
	cfg := emitter.DefaultConfig()
	cfg.OutDir = af.OutDir
	cfg.ScriptPath = af.Script
	cfg.KeyType = af.KeyType
	cfg.Validity = af.Validity
	cfg.Backend = af.Issuer
	cfg.OpenSSLBinary = af.OpenSSL
	cfg.NoRegenerate = af.NoRegenerate
	cfg.KeepScratch = af.KeepScratch
	cfg.IssueDBPath = af.IssueDB
	cfg.MetricsTextfile = af.MetricsTextfile

	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromContext(c *cli.Context) (*AppFlags, error) {
	afi, ok := c.App.Metadata["AppFlags"]
	if !ok {
		return nil, fmt.Errorf("AppFlags not found in app metadata")
	}
	return afi.(*AppFlags), nil
}
