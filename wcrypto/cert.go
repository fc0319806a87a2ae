package wcrypto

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
)

var ErrNotCA = errors.New("certificate is not a CA certificate")

// VerifySignerCertAndKey checks that priv belongs to cert and that cert may
// sign other certificates.
func VerifySignerCertAndKey(priv crypto.PrivateKey, cert *x509.Certificate) error {
	if !cert.BasicConstraintsValid || !cert.IsCA {
		return fmt.Errorf("%q: %w", cert.Subject.CommonName, ErrNotCA)
	}

	if privv, ok := priv.(interface {
		Validate() error
	}); ok {
		if err := privv.Validate(); err != nil {
			return fmt.Errorf("private key: %w", err)
		}
	}

	priv2pub, err := ExtractPublicKey(priv)
	if err != nil {
		return err
	}

	if err := VerifyPublicKeyMatch(cert.PublicKey, priv2pub); err != nil {
		return fmt.Errorf("The given private key is not for the given signer cert: %w", err)
	}

	return nil
}
