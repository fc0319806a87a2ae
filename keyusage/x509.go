package keyusage

import (
	"crypto/x509"
	"crypto/x509/pkix"

	"github.com/IPA-CyberLab/ekumatrix/consts"
)

// ExtKeyUsageCritical reports whether the certificate carries an
// extendedKeyUsage extension, and whether it is marked critical.
func ExtKeyUsageCritical(cert *x509.Certificate) (present, critical bool) {
	for _, e := range cert.Extensions {
		if e.Id.Equal(consts.OIDExtensionExtendedKeyUsage) {
			return true, e.Critical
		}
	}
	return false, false
}

// FromExtensions decodes keyUsage and extendedKeyUsage from raw extensions,
// keeping OIDs unknown to crypto/x509 as well.
func FromExtensions(exts []pkix.Extension) (KeyUsage, error) {
	var ku x509.KeyUsage
	var u KeyUsage

	for _, e := range exts {
		if e.Id.Equal(consts.OIDExtensionKeyUsage) {
			var err error
			ku, err = UnmarshalKeyUsage(e.Value)
			if err != nil {
				return KeyUsage{}, err
			}
		} else if e.Id.Equal(consts.OIDExtensionExtendedKeyUsage) {
			oids, err := UnmarshalExtKeyUsage(e.Value)
			if err != nil {
				return KeyUsage{}, err
			}
			u.ExtKeyUsages = oids
		}
	}
	u.KeyUsage = ku

	return u, nil
}

func FromCertificate(cert *x509.Certificate) (KeyUsage, error) {
	return FromExtensions(cert.Extensions)
}
