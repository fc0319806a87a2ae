package chain

import (
	"fmt"
	"strings"

	"github.com/IPA-CyberLab/ekumatrix/eku"
)

type Role int

const (
	Root Role = iota
	Intermediate
	EndEntity
)

func (r Role) String() string {
	switch r {
	case Root:
		return "root"
	case Intermediate:
		return "intermediate"
	case EndEntity:
		return "end-entity"
	default:
		return "unknown_role"
	}
}

const (
	CABasicConstraints = "basicConstraints = critical, CA:TRUE\n"
	EEBasicConstraints = "basicConstraints = CA:FALSE\n"

	CAFullKeyUsage = "keyUsage = keyCertSign, digitalSignature, nonRepudiation, keyEncipherment, dataEncipherment, keyAgreement, cRLSign\n"
	EEFullKeyUsage = "keyUsage = digitalSignature, nonRepudiation, keyEncipherment, dataEncipherment, keyAgreement\n"
)

// RootName is the artifact name of the trust anchor.
const RootName = "ca"

func (r Role) IsCA() bool {
	return r != EndEntity
}

// ExtensionText renders the extension block handed to the issuer for a
// certificate of role r carrying combination c. The root never carries an
// EKU.
func ExtensionText(r Role, c eku.Combination) (string, error) {
	var b strings.Builder

	switch r {
	case Root, Intermediate:
		if r == Root && !c.IsNone() {
			return "", fmt.Errorf("chain: %v certificate cannot carry eku %s", r, c)
		}
	case EndEntity:
	default:
		return "", fmt.Errorf("chain: unknown role %d", int(r))
	}

	if r.IsCA() {
		b.WriteString(CABasicConstraints)
		b.WriteString(CAFullKeyUsage)
		if !c.IsNone() {
			b.WriteString("extendedKeyUsage = " + c.ExtKeyUsageValue())
		}
	} else {
		b.WriteString(EEBasicConstraints)
		b.WriteString(EEFullKeyUsage)
		if !c.IsNone() {
			b.WriteString("extendedKeyUsage = critical," + c.ExtKeyUsageValue())
		}
	}

	return b.String(), nil
}

func IntermediateName(c eku.Combination) string {
	return "int-EKU-" + c.Name
}

func EndEntityBaseName(c eku.Combination) string {
	return "ee-EKU-" + c.Name
}

// EndEntityName is the artifact name of an end-entity certificate issued by
// the intermediate carrying issuer.
func EndEntityName(ee, issuer eku.Combination) string {
	return EndEntityBaseName(ee) + "-" + IntermediateName(issuer)
}
