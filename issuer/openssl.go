package issuer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/storage"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

const (
	DefaultOpenSSLBinary = "openssl"
	ExtensionsFileName   = "openssl-exts"
)

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// OpenSSL issues certificates by driving the openssl command line tool.
type OpenSSL struct {
	Layout *storage.Layout
	Binary string
	Logger *zap.Logger

	// Run defaults to executing Binary with os/exec.
	Run CommandRunner
}

var _ Issuer = (*OpenSSL)(nil)

func (o *OpenSSL) binary() string {
	if o.Binary == "" {
		return DefaultOpenSSLBinary
	}
	return o.Binary
}

func (o *OpenSSL) run(ctx context.Context, args ...string) error {
	runner := o.Run
	if runner == nil {
		runner = execRunner
	}

	slog := o.Logger.Sugar()
	slog.Debugw("Running openssl", "args", strings.Join(args, " "))
	out, err := runner(ctx, o.binary(), args...)
	if err != nil {
		return fmt.Errorf("openssl %s: %w: %s", args[0], err, bytes.TrimSpace(out))
	}
	return nil
}

func keyGenArgs(ktype wcrypto.KeyType, keyPath string) ([]string, error) {
	switch ktype {
	case wcrypto.KeyRSA2048:
		return []string{"genpkey", "-algorithm", "RSA", "-out", keyPath, "-pkeyopt", "rsa_keygen_bits:2048"}, nil
	case wcrypto.KeySECP256R1:
		return []string{"ecparam", "-name", "prime256v1", "-genkey", "-noout", "-out", keyPath}, nil
	default:
		return nil, fmt.Errorf("unknown key type: %v", ktype)
	}
}

func (o *OpenSSL) Issue(ctx context.Context, req *Request) (*Artifact, error) {
	if err := req.Verify(); err != nil {
		return nil, err
	}
	if o.Layout.ScratchDir == "" {
		return nil, storage.ErrNoScratchDir
	}
	if err := os.MkdirAll(o.Layout.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%q): %w", o.Layout.OutDir, err)
	}

	slog := o.Logger.Sugar().With("name", req.Name, "serial", req.Serial)
	start := time.Now()
	slog.Debugw("Generating certificate...")

	keyPath := o.Layout.KeyPath(req.Name)
	csrPath := filepath.Join(o.Layout.ScratchDir, req.Name+".csr")
	extPath := filepath.Join(o.Layout.ScratchDir, ExtensionsFileName)
	certPath := o.Layout.CertPath(req.Name)

	genArgs, err := keyGenArgs(req.KeyType, keyPath)
	if err != nil {
		return nil, err
	}
	if err := o.run(ctx, genArgs...); err != nil {
		return nil, err
	}

	if err := o.run(ctx,
		"req", "-new", "-key", keyPath, "-batch", "-out", csrPath,
		"-subj", "/CN="+req.Name); err != nil {
		return nil, err
	}

	if err := os.WriteFile(extPath, []byte(req.ExtensionText), 0644); err != nil {
		return nil, fmt.Errorf("Failed to write extensions file %q: %w", extPath, err)
	}

	days, err := req.validity().DaysFrom(time.Now())
	if err != nil {
		return nil, fmt.Errorf("issuer: %s: %w", req.Name, err)
	}
	args := []string{
		"x509", "-req", "-sha256", "-days", strconv.FormatUint(uint64(days), 10),
		"-in", csrPath,
		"-set_serial", strconv.FormatInt(req.Serial, 10),
		"-extfile", extPath,
		"-outform", "DER", "-out", certPath,
	}
	if req.Issuer == nil {
		args = append(args, "-signkey", keyPath)
	} else {
		args = append(args,
			"-CA", req.Issuer.CertPath, "-CAform", "DER",
			"-CAkey", req.Issuer.KeyPath)
	}
	if err := o.run(ctx, args...); err != nil {
		return nil, err
	}

	priv, err := storage.ReadPrivateKeyFile(keyPath)
	if err != nil {
		return nil, err
	}
	cert, err := storage.ReadCertificateFile(certPath)
	if err != nil {
		return nil, err
	}

	slog.Debugw("Generating certificate... Done.", "took", time.Since(start))
	return &Artifact{
		Name:     req.Name,
		KeyPath:  keyPath,
		CertPath: certPath,
		Key:      priv,
		Cert:     cert,
	}, nil
}
