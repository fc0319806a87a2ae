package eku

import (
	"encoding/asn1"
	"fmt"
)

// Atom is a single extended key usage value exercised by the test matrix.
type Atom int

const (
	ClientAuth Atom = iota
	EmailProtection
	NetscapeSGC
	OCSPSigning
	ServerAuth
	TimeStamping
)

// Atoms is the fixed catalog. codeSigning is left out on purpose: mozilla::pkix
// and classic NSS differ too much for the results to be meaningful.
var Atoms = []Atom{
	ClientAuth,
	EmailProtection,
	NetscapeSGC,
	OCSPSigning,
	ServerAuth,
	TimeStamping,
}

var (
	OIDServerAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	OIDClientAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	OIDEmailProtection = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDTimeStamping    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDOCSPSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
	OIDNetscapeSGC     = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 4, 1}
)

// Code returns the two letter abbreviation used in combination names.
func (a Atom) Code() string {
	switch a {
	case ClientAuth:
		return "CA"
	case EmailProtection:
		return "EP"
	case NetscapeSGC:
		return "NS"
	case OCSPSigning:
		return "OS"
	case ServerAuth:
		return "SA"
	case TimeStamping:
		return "TS"
	default:
		return "unknown_atom"
	}
}

// Value returns the token written after "extendedKeyUsage =" in the
// extension text handed to the issuer.
func (a Atom) Value() string {
	switch a {
	case ClientAuth:
		return "clientAuth"
	case EmailProtection:
		return "emailProtection"
	case NetscapeSGC:
		return "nsSGC" // Netscape Server Gated Crypto
	case OCSPSigning:
		return "1.3.6.1.5.5.7.3.9"
	case ServerAuth:
		return "serverAuth"
	case TimeStamping:
		return "timeStamping"
	default:
		return "unknown_atom"
	}
}

func (a Atom) OID() asn1.ObjectIdentifier {
	switch a {
	case ClientAuth:
		return OIDClientAuth
	case EmailProtection:
		return OIDEmailProtection
	case NetscapeSGC:
		return OIDNetscapeSGC
	case OCSPSigning:
		return OIDOCSPSigning
	case ServerAuth:
		return OIDServerAuth
	case TimeStamping:
		return OIDTimeStamping
	default:
		return nil
	}
}

func (a Atom) String() string {
	return a.Code()
}

func AtomFromCode(code string) (Atom, error) {
	for _, a := range Atoms {
		if a.Code() == code {
			return a, nil
		}
	}
	return Atom(-1), fmt.Errorf("unknown eku atom code %q", code)
}
