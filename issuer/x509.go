package issuer

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/consts"
	"github.com/IPA-CyberLab/ekumatrix/extconf"
	"github.com/IPA-CyberLab/ekumatrix/storage"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

// X509 issues certificates in-process with crypto/x509.
type X509 struct {
	Layout  *storage.Layout
	Randr   io.Reader
	Logger  *zap.Logger
	NowImpl func() time.Time
}

var _ Issuer = (*X509)(nil)

func (x *X509) Issue(ctx context.Context, req *Request) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Verify(); err != nil {
		return nil, err
	}

	slog := x.Logger.Sugar().With("name", req.Name, "serial", req.Serial)
	start := time.Now()
	slog.Debugw("Generating certificate...")

	exts, err := extconf.Parse(req.ExtensionText)
	if err != nil {
		return nil, fmt.Errorf("issuer: %s: %w", req.Name, err)
	}
	pkixExts, err := exts.PKIX()
	if err != nil {
		return nil, fmt.Errorf("issuer: %s: %w", req.Name, err)
	}

	priv, err := wcrypto.GenerateKey(x.Randr, req.KeyType, req.Name, x.Logger)
	if err != nil {
		return nil, err
	}
	pub, err := wcrypto.ExtractPublicKey(priv)
	if err != nil {
		return nil, err
	}

	now := x.NowImpl()
	t := &x509.Certificate{
		SerialNumber: new(big.Int).SetInt64(req.Serial),
		Subject:      pkix.Name{CommonName: req.Name},

		NotBefore: now.Add(-consts.NodesOutOfSyncThreshold).UTC(),
		NotAfter:  req.validity().GetNotAfter(now).UTC(),

		// basicConstraints, keyUsage and extendedKeyUsage all come from
		// ExtraExtensions so that their criticality is kept as specified.
		ExtraExtensions: pkixExts,

		// SignatureAlgorithm will be auto-specified by x509 package
	}
	if exts.IsCA() {
		ski, err := wcrypto.SubjectKeyIdFromPubkey(pub)
		if err != nil {
			return nil, err
		}
		t.SubjectKeyId = ski
	}

	parent := t // self signed cert
	signer := priv
	if req.Issuer != nil {
		parent = req.Issuer.Cert
		signer = req.Issuer.Key
	}

	certDer, err := x509.CreateCertificate(x.Randr, t, parent, pub, signer)
	if err != nil {
		return nil, fmt.Errorf("issuer: %s: Create cert failed: %w", req.Name, err)
	}
	cert, err := x509.ParseCertificate(certDer)
	if err != nil {
		return nil, fmt.Errorf("issuer: %s: Parse created cert failed: %w", req.Name, err)
	}

	certPath, err := x.Layout.WriteCertificateDer(req.Name, certDer)
	if err != nil {
		return nil, err
	}
	keyPath, err := x.Layout.WritePrivateKey(req.Name, priv)
	if err != nil {
		return nil, err
	}

	slog.Debugw("Generating certificate... Done.", "took", time.Since(start))
	return &Artifact{
		Name:     req.Name,
		KeyPath:  keyPath,
		CertPath: certPath,
		Key:      priv,
		Cert:     cert,
	}, nil
}
