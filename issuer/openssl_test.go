package issuer_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IPA-CyberLab/ekumatrix/chain"
	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/issuer"
	"github.com/IPA-CyberLab/ekumatrix/keyusage"
	"github.com/IPA-CyberLab/ekumatrix/storage"
	"github.com/IPA-CyberLab/ekumatrix/testutils"
	"github.com/IPA-CyberLab/ekumatrix/wcrypto"
)

func newOpenSSL(t *testing.T) (*issuer.OpenSSL, *storage.Layout) {
	t.Helper()

	l, err := storage.New(testutils.PrepareBasedir(t), testutils.PrepareBasedir(t))
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := testutils.ObservedLogger()
	return &issuer.OpenSSL{Layout: l, Logger: logger}, l
}

func TestOpenSSL_CommandLines(t *testing.T) {
	o, l := newOpenSSL(t)

	var cmds []string
	o.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		cmds = append(cmds, name+" "+strings.Join(args, " "))
		if args[0] == "x509" {
			return []byte("unable to load CA private key\n"), errors.New("exit status 1")
		}
		return nil, nil
	}

	text := mustExtText(t, chain.Root, eku.NoneName)
	_, err := o.Issue(context.Background(), &issuer.Request{
		Serial:        1,
		KeyType:       wcrypto.KeyRSA2048,
		Name:          chain.RootName,
		ExtensionText: text,
	})
	testutils.ExpectErrMessage(t, err, `^openssl x509: exit status 1: unable to load CA private key$`)

	if len(cmds) != 3 {
		t.Fatalf("Expected 3 commands, got %v", cmds)
	}
	keyPath := l.KeyPath(chain.RootName)
	if !strings.HasPrefix(cmds[0], "openssl genpkey -algorithm RSA -out "+keyPath) {
		t.Errorf("Unexpected keygen: %s", cmds[0])
	}
	if !strings.Contains(cmds[1], "req -new -key "+keyPath+" -batch") ||
		!strings.HasSuffix(cmds[1], "-subj /CN=ca") {
		t.Errorf("Unexpected req: %s", cmds[1])
	}
	if !strings.Contains(cmds[2], "-set_serial 1 ") ||
		!strings.Contains(cmds[2], "-outform DER -out "+l.CertPath(chain.RootName)) ||
		!strings.HasSuffix(cmds[2], "-signkey "+keyPath) {
		t.Errorf("Unexpected x509: %s", cmds[2])
	}

	bs, err := os.ReadFile(filepath.Join(l.ScratchDir, issuer.ExtensionsFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != text {
		t.Errorf("Unexpected extension file: %q", bs)
	}
}

func TestOpenSSL_RequiresScratchDir(t *testing.T) {
	l, err := storage.New(testutils.PrepareBasedir(t), "")
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := testutils.ObservedLogger()
	o := &issuer.OpenSSL{Layout: l, Logger: logger}

	_, err = o.Issue(context.Background(), &issuer.Request{Serial: 1, Name: "ca"})
	testutils.ExpectErr(t, err, storage.ErrNoScratchDir)
}

func TestOpenSSL_Chain(t *testing.T) {
	if _, err := exec.LookPath(issuer.DefaultOpenSSLBinary); err != nil {
		t.Skip("openssl not found in PATH")
	}

	o, _ := newOpenSSL(t)
	ctx := context.Background()

	root, err := o.Issue(ctx, &issuer.Request{
		Serial:        1,
		KeyType:       wcrypto.KeySECP256R1,
		Name:          chain.RootName,
		ExtensionText: mustExtText(t, chain.Root, eku.NoneName),
	})
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	inter, err := o.Issue(ctx, &issuer.Request{
		Serial:        4242,
		KeyType:       wcrypto.KeySECP256R1,
		Name:          "int-EKU-NONE",
		ExtensionText: mustExtText(t, chain.Intermediate, eku.NoneName),
		Issuer:        root,
	})
	if err != nil {
		t.Fatalf("intermediate: %v", err)
	}
	ee, err := o.Issue(ctx, &issuer.Request{
		Serial:        4343,
		KeyType:       wcrypto.KeySECP256R1,
		Name:          "ee-EKU-CA-int-EKU-NONE",
		ExtensionText: mustExtText(t, chain.EndEntity, "CA"),
		Issuer:        inter,
	})
	if err != nil {
		t.Fatalf("end-entity: %v", err)
	}

	if err := ee.Cert.CheckSignatureFrom(inter.Cert); err != nil {
		t.Errorf("end-entity not signed by intermediate: %v", err)
	}
	if present, critical := keyusage.ExtKeyUsageCritical(ee.Cert); !present || !critical {
		t.Errorf("end-entity eku: present=%v critical=%v", present, critical)
	}
	if ee.Cert.SerialNumber.Int64() != 4343 {
		t.Errorf("Unexpected serial: %v", ee.Cert.SerialNumber)
	}
}
