// Package issuer materializes the certificates of the test chain.
package issuer

import (
	"context"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/IPA-CyberLab/ekumatrix/period"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

// Request asks for one certificate. A nil Issuer requests a self-signed
// certificate.
type Request struct {
	Serial        int64
	KeyType       wcrypto.KeyType
	Name          string
	ExtensionText string
	Issuer        *Artifact

	// Validity defaults to period.Default when zero.
	Validity period.ValidityPeriod
}

// Artifact is a materialized key and certificate pair.
type Artifact struct {
	Name     string
	KeyPath  string
	CertPath string
	Key      crypto.PrivateKey
	Cert     *x509.Certificate
}

type Issuer interface {
	Issue(ctx context.Context, req *Request) (*Artifact, error)
}

var ErrEmptyName = errors.New("issuer: request has no name")

func (req *Request) validity() period.ValidityPeriod {
	if req.Validity == (period.ValidityPeriod{}) {
		return period.Default
	}
	return req.Validity
}

func (req *Request) Verify() error {
	if req.Name == "" {
		return ErrEmptyName
	}
	if req.Serial <= 0 {
		return fmt.Errorf("issuer: %s: serial must be positive, got %d", req.Name, req.Serial)
	}
	if req.Issuer != nil {
		if req.Issuer.Key == nil || req.Issuer.Cert == nil {
			return fmt.Errorf("issuer: %s: signer %q is incomplete", req.Name, req.Issuer.Name)
		}
		if err := wcrypto.VerifySignerCertAndKey(req.Issuer.Key, req.Issuer.Cert); err != nil {
			return fmt.Errorf("issuer: %s: signer %q: %w", req.Name, req.Issuer.Name, err)
		}
	}
	return nil
}

const (
	BackendX509    = "x509"
	BackendOpenSSL = "openssl"
)
