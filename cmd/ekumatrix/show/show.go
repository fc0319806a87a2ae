package show

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/app/appflags"
	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/table"
	"github.com/IPA-CyberLab/ekumatrix/keyusage"
	"github.com/IPA-CyberLab/ekumatrix/pemparser"
	"github.com/IPA-CyberLab/ekumatrix/storage"
)

func HexStr(bs []byte) string {
	if bs == nil {
		return "<nil>"
	}
	if len(bs) == 0 {
		return "<empty>"
	}

	var buf bytes.Buffer
	buf.Grow(len(bs)*3 - 1)

	for i, b := range bs {
		buf.WriteString(fmt.Sprintf("%02X", b))
		if i != len(bs)-1 {
			buf.WriteRune(':')
		}
	}

	return buf.String()
}

func joinOrNone(ss []string) string {
	if len(ss) == 0 {
		return "<none>"
	}
	return strings.Join(ss, ", ")
}

func basicConstraints(cert *x509.Certificate) string {
	if !cert.BasicConstraintsValid {
		return "<none>"
	}
	if cert.IsCA {
		return "CA:TRUE"
	}
	return "CA:FALSE"
}

func extKeyUsages(cert *x509.Certificate) (string, error) {
	present, critical := keyusage.ExtKeyUsageCritical(cert)
	if !present {
		return "<none>", nil
	}

	ku, err := keyusage.FromCertificate(cert)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(ku.ExtKeyUsages))
	for _, oid := range ku.ExtKeyUsages {
		names = append(names, keyusage.ExtKeyUsageName(oid))
	}
	s := joinOrNone(names)
	if critical {
		s = "critical, " + s
	}
	return s, nil
}

func PrintCertInfo(w io.Writer, cert *x509.Certificate, ft FormatType) error {
	if ft.ShouldOutputInfo() {
		ekus, err := extKeyUsages(cert)
		if err != nil {
			return err
		}

		fmt.Fprint(w, promptui.Styler(promptui.FGBold)("=== Certificate Info ==="))
		fmt.Fprintf(w, `
  SerialNumber: %s
  Subject: %s
  Validity:
    NotBefore: %s
    NotAfter:  %s
  PublicKey:
    Algorithm: %s
    SubjectKeyId: %s
  Issuer: %s
    AuthorityKeyId: %s
  SignatureAlgorithm: %s
  BasicConstraints: %s
  KeyUsage: %s
  ExtendedKeyUsage: %s

`,
			cert.SerialNumber,
			cert.Subject,
			cert.NotBefore.Format(time.RFC3339),
			cert.NotAfter.Format(time.RFC3339),
			cert.PublicKeyAlgorithm,
			HexStr(cert.SubjectKeyId),
			cert.Issuer,
			HexStr(cert.AuthorityKeyId),
			cert.SignatureAlgorithm,
			basicConstraints(cert),
			joinOrNone(keyusage.KeyUsageBitNames(cert.KeyUsage)),
			ekus,
		)
	}
	if ft.ShouldOutputPEM() {
		if _, err := w.Write(pemparser.MarshalCertificateDer(cert.Raw)); err != nil {
			return err
		}
	}
	return nil
}

func readCertificate(c *cli.Context) (*x509.Certificate, error) {
	if inpath := c.String("input"); inpath != "" {
		if c.Args().Len() != 0 {
			return nil, fmt.Errorf("Specify either --input or a certificate name, not both.")
		}
		if inpath != "-" {
			return storage.ReadCertificateFile(inpath)
		}

		bs, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return pemparser.ParseCertificate(bs)
	}

	if c.Args().Len() != 1 {
		return nil, fmt.Errorf("Expected a single certificate name, got %d arguments.", c.Args().Len())
	}

	af, err := appflags.FromContext(c)
	if err != nil {
		return nil, err
	}
	l, err := storage.New(af.OutDir, "")
	if err != nil {
		return nil, err
	}
	return l.ReadCertificate(c.Args().First())
}

func Action(c *cli.Context) (err error) {
	ft, err := FormatTypeFromString(c.String("format"))
	if err != nil {
		return err
	}

	cert, err := readCertificate(c)
	if err != nil {
		return err
	}

	var w io.Writer
	outfilestr := c.String("file")
	if outfilestr == "-" {
		w = c.App.Writer
	} else {
		wf, err := table.NewIfChangedWriteFile(outfilestr)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, wf.Close()) }()

		w = wf
	}

	return PrintCertInfo(w, cert, ft)
}

var Command = &cli.Command{
	Name:  "show",
	Usage: "Show the usages and details of a generated certificate.",
	UsageText: `ekumatrix show ca                          --- Show the root certificate.
   ekumatrix show ee-EKU-SA-int-EKU-NONE      --- Show a certificate in the output dir by name.
   ekumatrix show --input cert.der            --- Show an arbitrary DER or PEM certificate.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format. (full, pem)",
			Value: "full",
		},
		&cli.PathFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Read the certificate from the specified file instead of the output dir. \"-\" reads stdin.",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Write output to specified file.",
			Value:   "-",
		},
	},
	Action: Action,
}
