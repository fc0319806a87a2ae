package purpose

import (
	"errors"
	"fmt"

	"github.com/IPA-CyberLab/ekumatrix/eku"
)

// Purpose is a certificate usage the verifier is asked to validate against.
type Purpose int

const (
	SSLClient Purpose = iota
	SSLServer
	SSLCA
	EmailSigner
	EmailRecipient
	StatusResponder
)

// All lists the purposes in the order assertions are emitted.
// Object signing is not exercised.
var All = []Purpose{
	SSLClient,
	SSLServer,
	SSLCA,
	EmailSigner,
	EmailRecipient,
	StatusResponder,
}

var ErrUnsupportedPurpose = errors.New("unsupported certificate usage")

// String returns the script constant naming the usage.
func (p Purpose) String() string {
	switch p {
	case SSLClient:
		return "certificateUsageSSLClient"
	case SSLServer:
		return "certificateUsageSSLServer"
	case SSLCA:
		return "certificateUsageSSLCA"
	case EmailSigner:
		return "certificateUsageEmailSigner"
	case EmailRecipient:
		return "certificateUsageEmailRecipient"
	case StatusResponder:
		return "certificateUsageStatusResponder"
	default:
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
}

// RequiredAtom returns the EKU a certificate must allow to be used for p.
func RequiredAtom(p Purpose) (eku.Atom, error) {
	switch p {
	case SSLClient:
		return eku.ClientAuth, nil
	case SSLServer, SSLCA:
		return eku.ServerAuth, nil
	case EmailSigner, EmailRecipient:
		return eku.EmailProtection, nil
	case StatusResponder:
		return eku.OCSPSigning, nil
	default:
		return eku.Atom(-1), fmt.Errorf("%w: %v", ErrUnsupportedPurpose, p)
	}
}

func FromString(s string) (Purpose, error) {
	for _, p := range All {
		if p.String() == s {
			return p, nil
		}
	}
	return Purpose(-1), fmt.Errorf("%w: %q", ErrUnsupportedPurpose, s)
}

func (p Purpose) MarshalYAML() (interface{}, error) {
	if _, err := RequiredAtom(p); err != nil {
		return nil, err
	}
	return p.String(), nil
}
