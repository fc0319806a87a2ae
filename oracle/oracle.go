// Package oracle decides the verification result expected from the
// certificate verifier for a given chain and usage. The rules mirror the
// EKU policy of mozilla::pkix and must be kept in sync with it.
package oracle

import (
	"fmt"

	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
)

type Outcome int

const (
	Success Outcome = iota
	InadequateCertType
	InadequateKeyUsage
)

// Token returns the expected result as written into the test script.
func (o Outcome) Token() string {
	switch o {
	case Success:
		return "0"
	case InadequateCertType:
		return "SEC_ERROR_INADEQUATE_CERT_TYPE"
	case InadequateKeyUsage:
		return "SEC_ERROR_INADEQUATE_KEY_USAGE"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case InadequateCertType:
		return "InadequateCertType"
	case InadequateKeyUsage:
		return "InadequateKeyUsage"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalYAML() (interface{}, error) {
	return o.Token(), nil
}

// caAllowsSSLServer reports whether a CA certificate may issue SSL server
// certificates: no EKU, serverAuth, or the deprecated Netscape Server Gated
// Crypto usage which is still honored for compatibility.
func caAllowsSSLServer(c eku.Combination) bool {
	return c.IsNone() || c.Has(eku.ServerAuth) || c.Has(eku.NetscapeSGC)
}

// DecideRoot returns the result of verifying the intermediate itself for
// certificateUsageSSLCA.
func DecideRoot(intermediate eku.Combination) Outcome {
	if caAllowsSSLServer(intermediate) {
		return Success
	}
	return InadequateCertType
}

// Decide returns the result of verifying an end-entity certificate carrying
// ee, issued by an intermediate carrying intermediate, for usage p.
func Decide(intermediate, ee eku.Combination, p purpose.Purpose) (Outcome, error) {
	required, err := purpose.RequiredAtom(p)
	if err != nil {
		return Success, err
	}

	switch p {
	case purpose.SSLCA:
		// None of the end-entity certs are CA certs (basicConstraints).
		return InadequateKeyUsage, nil

	case purpose.StatusResponder:
		// OCSP signing must be asserted explicitly; an absent EKU is not enough.
		if !ee.Has(eku.OCSPSigning) {
			return InadequateCertType, nil
		}
		if !intermediate.CompatibleWith(required) {
			return InadequateCertType, nil
		}
		return Success, nil

	case purpose.SSLClient, purpose.SSLServer, purpose.EmailSigner, purpose.EmailRecipient:
		// A cert restricted to OCSP signing is not valid for anything else.
		if ee.Has(eku.OCSPSigning) {
			return InadequateCertType, nil
		}

	default:
		return Success, fmt.Errorf("%w: %v", purpose.ErrUnsupportedPurpose, p)
	}

	if !ee.CompatibleWith(required) {
		return InadequateCertType, nil
	}

	if p == purpose.SSLServer {
		if !caAllowsSSLServer(intermediate) {
			return InadequateCertType, nil
		}
		return Success, nil
	}

	if !intermediate.CompatibleWith(required) {
		return InadequateCertType, nil
	}
	return Success, nil
}

// DecideNames is Decide over combination names.
func DecideNames(intermediate, ee string, p purpose.Purpose) (Outcome, error) {
	ic, err := eku.ParseName(intermediate)
	if err != nil {
		return Success, err
	}
	ec, err := eku.ParseName(ee)
	if err != nil {
		return Success, err
	}
	return Decide(ic, ec, p)
}
