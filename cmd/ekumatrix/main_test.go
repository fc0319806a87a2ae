package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	main "github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix"
	"github.com/IPA-CyberLab/ekumatrix/keyusage"
	"github.com/IPA-CyberLab/ekumatrix/storage"
	"github.com/IPA-CyberLab/ekumatrix/testutils"
)

const (
	numCombinations = 23
	numPurposes     = 6
	numAssertions   = numCombinations + numCombinations*numCombinations*numPurposes
)

type result struct {
	logs   *observer.ObservedLogs
	stdout string
	err    error
}

func runEkumatrix(t *testing.T, ctx context.Context, configYaml []byte, args ...string) result {
	t.Helper()

	app := main.NewApp()

	zobs, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(zobs)
	app.Metadata = make(map[string]interface{})
	app.Metadata["Logger"] = logger

	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer
	app.Writer = &stdoutBuf
	app.ErrWriter = &stderrBuf

	as := []string{"ekumatrix", "--verbose"}
	if configYaml != nil {
		tmpfile, err := os.CreateTemp("", "ekumatrix-testconfig-*.yml")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Remove(tmpfile.Name()) })

		if _, err := tmpfile.Write(configYaml); err != nil {
			t.Fatal(err)
		}
		if err := tmpfile.Close(); err != nil {
			t.Fatal(err)
		}
		as = append(as, "--config", tmpfile.Name())
	}
	as = append(as, args...)
	err := app.RunContext(ctx, as)

	t.Logf("stderr: %s", stderrBuf.String())
	return result{logs: logs, stdout: stdoutBuf.String(), err: err}
}

func countAssertions(t *testing.T, scriptPath string) int {
	t.Helper()

	bs, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(bs), "  checkCertErrorGeneric(")
}

func TestGenerate(t *testing.T) {
	basedir := testutils.PrepareBasedir(t)
	outdir := filepath.Join(basedir, "test_cert_eku")

	r := runEkumatrix(t, context.Background(), nil,
		"--outdir", outdir, "--key-type", "ecdsa",
		"--issuedb", filepath.Join(basedir, "issuedb.json"))
	if r.err != nil {
		t.Fatal(r.err)
	}
	testutils.ExpectLogMessage(t, r.logs, `^Generating test vectors\.\.\. Done\.$`)
	testutils.ExpectFile(t, basedir, "test_cert_eku.js")
	testutils.ExpectFile(t, basedir, "issuedb.json")
	testutils.ExpectFile(t, outdir, "ca.der")
	testutils.ExpectFile(t, outdir, "int-EKU-CA_EP_NS_OS_SA_TS.der")
	testutils.ExpectFile(t, outdir, "ee-EKU-TS-int-EKU-OS_TS.der")
	testutils.ExpectFileNotExist(t, outdir, "ca.key")

	scriptPath := filepath.Join(basedir, "test_cert_eku.js")
	if n := countAssertions(t, scriptPath); n != numAssertions {
		t.Errorf("Unexpected assertion count %d", n)
	}

	ee, err := storage.ReadCertificateFile(filepath.Join(outdir, "ee-EKU-CA_OS-int-EKU-NONE.der"))
	if err != nil {
		t.Fatal(err)
	}
	if present, critical := keyusage.ExtKeyUsageCritical(ee); !present || !critical {
		t.Errorf("end-entity eku: present=%v critical=%v", present, critical)
	}

	before, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	r = runEkumatrix(t, context.Background(), nil, "--outdir", outdir, "--no-regenerate", "generate")
	if r.err != nil {
		t.Fatal(r.err)
	}
	after, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("no-regenerate rewrote a different script")
	}
	if n := r.logs.FilterMessage("Artifact referenced by the script is missing.").Len(); n != 0 {
		t.Errorf("Unexpected %d missing artifact warnings", n)
	}
	if n := r.logs.FilterMessageSnippet("Generating certificate").Len(); n != 0 {
		t.Errorf("no-regenerate issued certificates")
	}
}

func TestShow(t *testing.T) {
	basedir := testutils.PrepareBasedir(t)
	outdir := filepath.Join(basedir, "test_cert_eku")

	r := runEkumatrix(t, context.Background(), nil,
		"--outdir", outdir, "--key-type", "ecdsa", "--validity", "farfuture")
	if r.err != nil {
		t.Fatal(r.err)
	}

	r = runEkumatrix(t, context.Background(), nil, "--outdir", outdir, "show", "ee-EKU-OS_SA-int-EKU-SA")
	if r.err != nil {
		t.Fatal(r.err)
	}
	for _, expected := range []string{
		"Subject: CN=ee-EKU-OS_SA-int-EKU-SA\n",
		"Issuer: CN=int-EKU-SA\n",
		"NotAfter:  2099-12-31T23:59:00Z\n",
		"BasicConstraints: CA:FALSE\n",
		"KeyUsage: digitalSignature, nonRepudiation, keyEncipherment, dataEncipherment, keyAgreement\n",
		"ExtendedKeyUsage: critical, OCSPSigning, serverAuth\n",
		"-----BEGIN CERTIFICATE-----\n",
	} {
		if !strings.Contains(r.stdout, expected) {
			t.Errorf("show output lacks %q:\n%s", expected, r.stdout)
		}
	}

	r = runEkumatrix(t, context.Background(), nil, "--outdir", outdir, "show", "ca")
	if r.err != nil {
		t.Fatal(r.err)
	}
	for _, expected := range []string{
		"SerialNumber: 1\n",
		"Subject: CN=ca\n",
		"BasicConstraints: CA:TRUE\n",
		"KeyUsage: digitalSignature, nonRepudiation, keyEncipherment, dataEncipherment, keyAgreement, keyCertSign, cRLSign\n",
		"ExtendedKeyUsage: <none>\n",
	} {
		if !strings.Contains(r.stdout, expected) {
			t.Errorf("show ca output lacks %q:\n%s", expected, r.stdout)
		}
	}

	r = runEkumatrix(t, context.Background(), nil, "show", "--format", "pem", "--input", filepath.Join(outdir, "int-EKU-NONE.der"))
	if r.err != nil {
		t.Fatal(r.err)
	}
	if !strings.HasPrefix(r.stdout, "-----BEGIN CERTIFICATE-----\n") {
		t.Errorf("Unexpected pem output %q", r.stdout)
	}

	r = runEkumatrix(t, context.Background(), nil, "--outdir", outdir, "show", "ee-EKU-XX-int-EKU-SA")
	testutils.ExpectErrMessage(t, r.err, `no such file or directory`)
}

func TestGenerate_OutDirFromEnv(t *testing.T) {
	basedir := testutils.PrepareBasedir(t)
	outdir := filepath.Join(basedir, "eku")
	t.Setenv("EKUMATRIX_OUTDIR", outdir)

	r := runEkumatrix(t, context.Background(), nil, "--no-regenerate")
	if r.err != nil {
		t.Fatal(r.err)
	}
	testutils.ExpectFile(t, basedir, "eku.js")
	testutils.ExpectLogMessage(t, r.logs, `^Artifact referenced by the script is missing\.$`)
}

func TestGenerate_Config(t *testing.T) {
	basedir := testutils.PrepareBasedir(t)
	outdir := filepath.Join(basedir, "fromconfig")
	script := filepath.Join(basedir, "custom.js")

	config := []byte(`
outDir: ` + outdir + `
script: ` + script + `
keyType: ecdsa
noRegenerate: true
`)
	r := runEkumatrix(t, context.Background(), config)
	if r.err != nil {
		t.Fatal(r.err)
	}
	testutils.ExpectFile(t, basedir, "custom.js")
	testutils.ExpectFileNotExist(t, basedir, "fromconfig.js")

	// Command line flags override the config file.
	override := filepath.Join(basedir, "override.js")
	r = runEkumatrix(t, context.Background(), config, "--script", override)
	if r.err != nil {
		t.Fatal(r.err)
	}
	testutils.ExpectFile(t, basedir, "override.js")
}

func TestGenerate_BadConfig(t *testing.T) {
	testcases := []struct {
		Name   string
		Config []byte
		Args   []string
		ErrRE  string
	}{
		{
			Name:   "unknown field",
			Config: []byte("outDir: x\nbogus: 1\n"),
			ErrRE:  `field bogus not found`,
		},
		{
			Name:   "bad key type in config",
			Config: []byte("keyType: dsa\n"),
			ErrRE:  `Unknown key type "dsa"`,
		},
		{
			Name:   "empty config",
			Config: []byte("\n"),
			ErrRE:  `was empty`,
		},
		{
			Name:  "bad key type flag",
			Args:  []string{"--key-type", "dsa"},
			ErrRE: `Failed to parse flag key-type="dsa"`,
		},
		{
			Name:  "bad issuer",
			Args:  []string{"--issuer", "cfssl"},
			ErrRE: `unknown issuer backend "cfssl"`,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			r := runEkumatrix(t, context.Background(), tc.Config, tc.Args...)
			testutils.ExpectErrMessage(t, r.err, tc.ErrRE)
		})
	}
}

func TestGenerate_BadFlagIsLogged(t *testing.T) {
	r := runEkumatrix(t, context.Background(), nil, "--key-type", "foo")
	testutils.ExpectErrMessage(t, r.err, `Failed to parse flag key-type="foo"`)

	// main reports the error through the global logger.
	zap.S().Error(r.err)
	testutils.ExpectLogMessage(t, r.logs, `Failed to parse flag key-type="foo": Unknown key type "foo"`)
}

func TestTable_TSV(t *testing.T) {
	r := runEkumatrix(t, context.Background(), nil, "table")
	if r.err != nil {
		t.Fatal(r.err)
	}

	lines := strings.Split(strings.TrimSuffix(r.stdout, "\n"), "\n")
	if len(lines) != 1+numAssertions {
		t.Fatalf("Unexpected number of lines %d", len(lines))
	}
	if lines[0] != "intermediate\tendEntity\tpurpose\toutcome" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if lines[1] != "CA\t-\tcertificateUsageSSLCA\tSEC_ERROR_INADEQUATE_CERT_TYPE" {
		t.Errorf("Unexpected first root check %q", lines[1])
	}
	if !strings.Contains(r.stdout, "NONE\tOS\tcertificateUsageStatusResponder\t0\n") {
		t.Errorf("table lacks NONE/OS status responder success")
	}
}

func TestTable_YAMLFile(t *testing.T) {
	basedir := testutils.PrepareBasedir(t)
	path := filepath.Join(basedir, "table.yaml")

	r := runEkumatrix(t, context.Background(), nil, "table", "--format", "yaml", "--file", path)
	if r.err != nil {
		t.Fatal(r.err)
	}
	testutils.ExpectLogMessage(t, r.logs, `^Wrote decision table\.$`)

	bs, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var parsed struct {
		RootChecks []struct {
			Intermediate string `yaml:"intermediate"`
			Outcome      string `yaml:"outcome"`
		} `yaml:"rootChecks"`
		Vectors []struct {
			Intermediate string `yaml:"intermediate"`
			EndEntity    string `yaml:"endEntity"`
			Purpose      string `yaml:"purpose"`
			Outcome      string `yaml:"outcome"`
		} `yaml:"vectors"`
	}
	if err := yaml.Unmarshal(bs, &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed.RootChecks) != numCombinations {
		t.Errorf("Unexpected number of root checks %d", len(parsed.RootChecks))
	}
	if len(parsed.Vectors) != numCombinations*numCombinations*numPurposes {
		t.Errorf("Unexpected number of vectors %d", len(parsed.Vectors))
	}
	if v := parsed.Vectors[0]; v.Intermediate != "CA" || v.EndEntity != "CA" ||
		v.Purpose != "certificateUsageSSLClient" || v.Outcome != "0" {
		t.Errorf("Unexpected first vector %+v", v)
	}

	// A second run with identical output leaves the file untouched.
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	r = runEkumatrix(t, context.Background(), nil, "table", "--format", "yaml", "--file", path)
	if r.err != nil {
		t.Fatal(r.err)
	}
	fi2, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != fi2.Size() || !fi.ModTime().Equal(fi2.ModTime()) {
		t.Errorf("unchanged table was rewritten")
	}
}

func TestTable_BadFormat(t *testing.T) {
	r := runEkumatrix(t, context.Background(), nil, "table", "--format", "csv")
	testutils.ExpectErrMessage(t, r.err, `Unknown format "csv"`)
}
