package keyusage

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/bits"
	"sort"
	"strconv"
	"strings"

	"github.com/IPA-CyberLab/ekumatrix/eku"
)

type KeyUsage struct {
	KeyUsage     x509.KeyUsage
	ExtKeyUsages []asn1.ObjectIdentifier
}

var (
	OIDExtKeyUsageAny         = asn1.ObjectIdentifier{2, 5, 29, 37, 0}
	OIDExtKeyUsageCodeSigning = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
	OIDExtKeyUsageMSSGC       = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 10, 3, 3}
)

// KeyUsageFromString accepts the openssl bit names.
func KeyUsageFromString(bitName string) (x509.KeyUsage, error) {
	switch bitName {
	case "digitalSignature":
		return x509.KeyUsageDigitalSignature, nil
	case "nonRepudiation", "contentCommitment":
		return x509.KeyUsageContentCommitment, nil
	case "keyEncipherment":
		return x509.KeyUsageKeyEncipherment, nil
	case "dataEncipherment":
		return x509.KeyUsageDataEncipherment, nil
	case "keyAgreement":
		return x509.KeyUsageKeyAgreement, nil
	case "keyCertSign":
		return x509.KeyUsageCertSign, nil
	case "cRLSign":
		return x509.KeyUsageCRLSign, nil
	case "encipherOnly":
		return x509.KeyUsageEncipherOnly, nil
	case "decipherOnly":
		return x509.KeyUsageDecipherOnly, nil
	default:
		return x509.KeyUsage(0), fmt.Errorf("unknown bitName %q", bitName)
	}
}

// ExtKeyUsageFromString accepts the openssl short names and dotted OIDs.
func ExtKeyUsageFromString(ekuName string) (asn1.ObjectIdentifier, error) {
	switch ekuName {
	case "anyExtendedKeyUsage":
		return OIDExtKeyUsageAny, nil
	case "serverAuth":
		return eku.OIDServerAuth, nil
	case "clientAuth":
		return eku.OIDClientAuth, nil
	case "codeSigning":
		return OIDExtKeyUsageCodeSigning, nil
	case "emailProtection":
		return eku.OIDEmailProtection, nil
	case "timeStamping":
		return eku.OIDTimeStamping, nil
	case "OCSPSigning":
		return eku.OIDOCSPSigning, nil
	case "nsSGC":
		return eku.OIDNetscapeSGC, nil
	case "msSGC":
		return OIDExtKeyUsageMSSGC, nil
	}

	oid, err := ParseObjectIdentifier(ekuName)
	if err != nil {
		return nil, fmt.Errorf("unknown ekuName %q", ekuName)
	}
	return oid, nil
}

func ParseObjectIdentifier(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%q is not a dotted object identifier", s)
	}

	oid := make(asn1.ObjectIdentifier, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%q is not a dotted object identifier", s)
		}
		oid = append(oid, n)
	}
	return oid, nil
}

// MarshalKeyUsage encodes ku as the DER value of a keyUsage extension.
func MarshalKeyUsage(ku x509.KeyUsage) ([]byte, error) {
	if ku == 0 {
		return nil, fmt.Errorf("KeyUsage is empty.")
	}

	a := []byte{bits.Reverse8(byte(ku)), bits.Reverse8(byte(ku >> 8))}
	if a[1] == 0 {
		a = a[:1]
	}

	bitLen := len(a) * 8
	last := a[len(a)-1]
	bitLen -= bits.TrailingZeros8(last)

	return asn1.Marshal(asn1.BitString{Bytes: a, BitLength: bitLen})
}

// UnmarshalKeyUsage decodes the DER value of a keyUsage extension.
func UnmarshalKeyUsage(der []byte) (x509.KeyUsage, error) {
	var bstr asn1.BitString
	if _, err := asn1.Unmarshal(der, &bstr); err != nil {
		return 0, fmt.Errorf("Failed to asn1.Unmarshal keyUsage extension value: %w", err)
	}

	x := 0
	for i := bstr.BitLength - 1; i > -1; i-- {
		x = x << 1
		x = x | bstr.At(i)
	}
	return x509.KeyUsage(x), nil
}

func MarshalExtKeyUsage(oids []asn1.ObjectIdentifier) ([]byte, error) {
	if len(oids) == 0 {
		return nil, fmt.Errorf("extKeyUsage is empty.")
	}
	return asn1.Marshal(oids)
}

func UnmarshalExtKeyUsage(der []byte) ([]asn1.ObjectIdentifier, error) {
	var oids []asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(der, &oids); err != nil {
		return nil, fmt.Errorf("Failed to asn1.Unmarshal extendedKeyUsage extension value: %w", err)
	}
	return oids, nil
}

func (u KeyUsage) Clone() KeyUsage {
	return KeyUsage{
		KeyUsage:     u.KeyUsage,
		ExtKeyUsages: append([]asn1.ObjectIdentifier{}, u.ExtKeyUsages...),
	}
}

func (a KeyUsage) Equals(b KeyUsage) bool {
	if a.KeyUsage != b.KeyUsage {
		return false
	}
	if len(a.ExtKeyUsages) != len(b.ExtKeyUsages) {
		return false
	}

	ekua := sortedOIDStrings(a.ExtKeyUsages)
	ekub := sortedOIDStrings(b.ExtKeyUsages)
	for i := range ekua {
		if ekua[i] != ekub[i] {
			return false
		}
	}

	return true
}

func sortedOIDStrings(oids []asn1.ObjectIdentifier) []string {
	ss := make([]string, 0, len(oids))
	for _, oid := range oids {
		ss = append(ss, oid.String())
	}
	sort.Strings(ss)
	return ss
}

// FromCombination returns the EKU OIDs of c. NONE yields no OIDs.
func FromCombination(ku x509.KeyUsage, c eku.Combination) KeyUsage {
	oids := make([]asn1.ObjectIdentifier, 0, len(c.Atoms))
	for _, a := range c.Atoms {
		oids = append(oids, a.OID())
	}
	return KeyUsage{KeyUsage: ku, ExtKeyUsages: oids}
}

var keyUsageBitNames = []struct {
	bit  x509.KeyUsage
	name string
}{
	{x509.KeyUsageDigitalSignature, "digitalSignature"},
	{x509.KeyUsageContentCommitment, "nonRepudiation"},
	{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
	{x509.KeyUsageDataEncipherment, "dataEncipherment"},
	{x509.KeyUsageKeyAgreement, "keyAgreement"},
	{x509.KeyUsageCertSign, "keyCertSign"},
	{x509.KeyUsageCRLSign, "cRLSign"},
	{x509.KeyUsageEncipherOnly, "encipherOnly"},
	{x509.KeyUsageDecipherOnly, "decipherOnly"},
}

// KeyUsageBitNames is the inverse of KeyUsageFromString, in bit order.
func KeyUsageBitNames(ku x509.KeyUsage) []string {
	names := make([]string, 0, bits.OnesCount(uint(ku)))
	for _, e := range keyUsageBitNames {
		if ku&e.bit != 0 {
			names = append(names, e.name)
		}
	}
	return names
}

var extKeyUsageNames = []string{
	"anyExtendedKeyUsage",
	"serverAuth",
	"clientAuth",
	"codeSigning",
	"emailProtection",
	"timeStamping",
	"OCSPSigning",
	"nsSGC",
	"msSGC",
}

// ExtKeyUsageName returns the openssl short name of oid, or its dotted form.
func ExtKeyUsageName(oid asn1.ObjectIdentifier) string {
	for _, name := range extKeyUsageNames {
		if known, _ := ExtKeyUsageFromString(name); known.Equal(oid) {
			return name
		}
	}
	return oid.String()
}
