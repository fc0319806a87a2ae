// Package extconf parses the openssl style extension text handed to the
// certificate issuer, e.g.
//
//	basicConstraints = critical, CA:TRUE
//	keyUsage = keyCertSign, cRLSign
//	extendedKeyUsage = critical,serverAuth,1.3.6.1.5.5.7.3.9
package extconf

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/IPA-CyberLab/ekumatrix/consts"
	"github.com/IPA-CyberLab/ekumatrix/keyusage"
)

type BasicConstraints struct {
	Critical bool
	IsCA     bool
	// MaxPathLen is -1 when no pathlen was given.
	MaxPathLen int
}

type Extensions struct {
	BasicConstraints *BasicConstraints

	KeyUsage         x509.KeyUsage
	KeyUsageCritical bool

	ExtKeyUsages        []asn1.ObjectIdentifier
	ExtKeyUsageCritical bool
}

var ErrDuplicateKey = errors.New("extconf: extension specified more than once")

func splitValues(v string) []string {
	var vs []string
	for _, e := range strings.Split(v, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		vs = append(vs, e)
	}
	return vs
}

func parseBasicConstraints(v string) (*BasicConstraints, error) {
	bc := &BasicConstraints{MaxPathLen: -1}
	seenCA := false
	for _, e := range splitValues(v) {
		switch {
		case e == "critical":
			bc.Critical = true
		case strings.EqualFold(e, "CA:TRUE"):
			bc.IsCA = true
			seenCA = true
		case strings.EqualFold(e, "CA:FALSE"):
			bc.IsCA = false
			seenCA = true
		case strings.HasPrefix(e, "pathlen:"):
			n, err := strconv.Atoi(strings.TrimPrefix(e, "pathlen:"))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("extconf: invalid pathlen %q", e)
			}
			bc.MaxPathLen = n
		default:
			return nil, fmt.Errorf("extconf: unknown basicConstraints value %q", e)
		}
	}
	if !seenCA {
		return nil, errors.New("extconf: basicConstraints must specify CA:TRUE or CA:FALSE")
	}
	if bc.MaxPathLen >= 0 && !bc.IsCA {
		return nil, errors.New("extconf: pathlen is only allowed with CA:TRUE")
	}
	return bc, nil
}

// Parse parses newline separated "key = value" lines. Blank lines are skipped.
func Parse(text string) (*Extensions, error) {
	exts := &Extensions{}
	seen := make(map[string]struct{})

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("extconf: line %d: missing '=' in %q", i+1, line)
		}
		k = strings.TrimSpace(k)
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
		seen[k] = struct{}{}

		switch k {
		case "basicConstraints":
			bc, err := parseBasicConstraints(v)
			if err != nil {
				return nil, err
			}
			exts.BasicConstraints = bc

		case "keyUsage":
			for _, e := range splitValues(v) {
				if e == "critical" {
					exts.KeyUsageCritical = true
					continue
				}
				bit, err := keyusage.KeyUsageFromString(e)
				if err != nil {
					return nil, fmt.Errorf("extconf: line %d: %w", i+1, err)
				}
				exts.KeyUsage |= bit
			}
			if exts.KeyUsage == 0 {
				return nil, fmt.Errorf("extconf: line %d: keyUsage without any usage", i+1)
			}

		case "extendedKeyUsage":
			for _, e := range splitValues(v) {
				if e == "critical" {
					exts.ExtKeyUsageCritical = true
					continue
				}
				oid, err := keyusage.ExtKeyUsageFromString(e)
				if err != nil {
					return nil, fmt.Errorf("extconf: line %d: %w", i+1, err)
				}
				exts.ExtKeyUsages = append(exts.ExtKeyUsages, oid)
			}
			if len(exts.ExtKeyUsages) == 0 {
				return nil, fmt.Errorf("extconf: line %d: extendedKeyUsage without any usage", i+1)
			}

		default:
			return nil, fmt.Errorf("extconf: line %d: unsupported extension %q", i+1, k)
		}
	}

	return exts, nil
}

func (e *Extensions) IsCA() bool {
	return e.BasicConstraints != nil && e.BasicConstraints.IsCA
}

// asn1BasicConstraints mirrors the structure crypto/x509 marshals.
type asn1BasicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// PKIX renders the extensions for x509.Certificate.ExtraExtensions, which
// take precedence over the template fields and keep the criticality flags.
func (e *Extensions) PKIX() ([]pkix.Extension, error) {
	var out []pkix.Extension

	if bc := e.BasicConstraints; bc != nil {
		der, err := asn1.Marshal(asn1BasicConstraints{IsCA: bc.IsCA, MaxPathLen: bc.MaxPathLen})
		if err != nil {
			return nil, fmt.Errorf("Failed to marshal basicConstraints: %w", err)
		}
		out = append(out, pkix.Extension{
			Id:       consts.OIDExtensionBasicConstraints,
			Critical: bc.Critical,
			Value:    der,
		})
	}

	if e.KeyUsage != 0 {
		der, err := keyusage.MarshalKeyUsage(e.KeyUsage)
		if err != nil {
			return nil, err
		}
		out = append(out, pkix.Extension{
			Id:       consts.OIDExtensionKeyUsage,
			Critical: e.KeyUsageCritical,
			Value:    der,
		})
	}

	if len(e.ExtKeyUsages) > 0 {
		der, err := keyusage.MarshalExtKeyUsage(e.ExtKeyUsages)
		if err != nil {
			return nil, err
		}
		out = append(out, pkix.Extension{
			Id:       consts.OIDExtensionExtendedKeyUsage,
			Critical: e.ExtKeyUsageCritical,
			Value:    der,
		})
	}

	return out, nil
}
