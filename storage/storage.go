package storage

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	"github.com/IPA-CyberLab/ekumatrix/consts"
	"github.com/IPA-CyberLab/ekumatrix/pemparser"
)

// Layout binds the directories a generation run writes to. Certificates go
// to OutDir, named "<name>.der". Private keys only live in ScratchDir.
type Layout struct {
	OutDir     string
	ScratchDir string
}

func New(outDir, scratchDir string) (*Layout, error) {
	if err := ValidateDir(outDir); err != nil {
		return nil, err
	}
	if scratchDir != "" {
		if err := ValidateDir(scratchDir); err != nil {
			return nil, err
		}
	}

	return &Layout{OutDir: outDir, ScratchDir: scratchDir}, nil
}

// NewScratchDir creates a fresh scratch dir. The returned func removes it.
func NewScratchDir() (string, func() error, error) {
	d, err := os.MkdirTemp("", "ekumatrix-scratch-*")
	if err != nil {
		return "", nil, fmt.Errorf("Failed to create scratch dir: %w", err)
	}
	return d, func() error { return os.RemoveAll(d) }, nil
}

func (l *Layout) String() string {
	if l == nil {
		return "(*Layout)nil"
	}

	return fmt.Sprintf("Layout{out: %q, scratch: %q}", l.OutDir, l.ScratchDir)
}

func (l *Layout) mkdirIfNeeded() error {
	if err := os.MkdirAll(l.OutDir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%q): %w", l.OutDir, err)
	}
	return nil
}

func (l *Layout) CertPath(name string) string {
	return filepath.Join(l.OutDir, name+".der")
}

var ErrNoScratchDir = errors.New("storage: no scratch dir configured")

func (l *Layout) KeyPath(name string) string {
	return filepath.Join(l.ScratchDir, name+".key")
}

func (l *Layout) LockPath() string {
	return filepath.Join(l.OutDir, consts.LockFileName)
}

func (l *Layout) WriteCertificateDer(name string, certDer []byte) (string, error) {
	if err := l.mkdirIfNeeded(); err != nil {
		return "", err
	}

	p := l.CertPath(name)
	if err := os.WriteFile(p, certDer, 0644); err != nil {
		return "", fmt.Errorf("Cert write to %q failed: %w", p, err)
	}
	return p, nil
}

func ReadCertificateFile(p string) (*x509.Certificate, error) {
	bs, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("Failed to read cert %q: %w", p, err)
	}
	cert, err := pemparser.ParseCertificate(bs)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse cert %q: %w", p, err)
	}
	return cert, nil
}

func (l *Layout) ReadCertificate(name string) (*x509.Certificate, error) {
	return ReadCertificateFile(l.CertPath(name))
}

func WritePrivateKeyFile(p string, priv crypto.PrivateKey) error {
	privPem, err := pemparser.MarshalPrivateKey(priv)
	if err != nil {
		return fmt.Errorf("Failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(p, privPem, 0600); err != nil {
		return fmt.Errorf("Private key write to %q failed: %w", p, err)
	}
	return nil
}

func (l *Layout) WritePrivateKey(name string, priv crypto.PrivateKey) (string, error) {
	if l.ScratchDir == "" {
		return "", ErrNoScratchDir
	}

	p := l.KeyPath(name)
	if err := WritePrivateKeyFile(p, priv); err != nil {
		return "", err
	}
	return p, nil
}

func ReadPrivateKeyFile(p string) (crypto.PrivateKey, error) {
	bs, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("Failed to read private key %q: %w", p, err)
	}
	priv, err := pemparser.ParsePrivateKey(bs)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse private key %q: %w", p, err)
	}
	return priv, nil
}

var ErrLocked = errors.New("storage: output dir is locked by another run")

// Lock takes an exclusive advisory lock on the output dir. The returned
// func releases it.
func (l *Layout) Lock() (func() error, error) {
	if err := l.mkdirIfNeeded(); err != nil {
		return nil, err
	}

	fl := flock.New(l.LockPath())
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("Failed to acquire output dir flock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.LockPath())
	}

	return func() error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("Failed to release output dir flock: %w", err)
		}
		if err := os.Remove(fl.Path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("Failed to remove lock file: %w", err)
		}
		return nil
	}, nil
}

// MissingArtifacts returns one error per certificate in names that is not
// present in the output dir.
func (l *Layout) MissingArtifacts(names []string) error {
	var merr error
	for _, name := range names {
		p := l.CertPath(name)
		fi, err := os.Stat(p)
		if err != nil {
			merr = multierr.Append(merr, fmt.Errorf("artifact %q: %w", p, err))
			continue
		}
		if fi.IsDir() {
			merr = multierr.Append(merr, fmt.Errorf("artifact %q is a dir", p))
		}
	}
	return merr
}
