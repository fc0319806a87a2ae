package oracle_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/IPA-CyberLab/ekumatrix/eku"
	"github.com/IPA-CyberLab/ekumatrix/oracle"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
)

func mustDecide(t *testing.T, i, e string, p purpose.Purpose) oracle.Outcome {
	t.Helper()

	o, err := oracle.DecideNames(i, e, p)
	if err != nil {
		t.Fatalf("DecideNames(%q, %q, %v): %v", i, e, p, err)
	}
	return o
}

func TestDecide_Examples(t *testing.T) {
	testcases := []struct {
		Intermediate string
		EndEntity    string
		Purpose      purpose.Purpose
		Expected     oracle.Outcome
	}{
		{"SA", "SA", purpose.SSLServer, oracle.Success},
		{"CA", "SA", purpose.SSLServer, oracle.InadequateCertType},
		{"NS", "SA", purpose.SSLServer, oracle.Success},
		{"NONE", "NONE", purpose.SSLServer, oracle.Success},
		{"NONE", "CA", purpose.SSLServer, oracle.InadequateCertType},
		{"NONE", "OS", purpose.StatusResponder, oracle.Success},
		{"NONE", "NONE", purpose.StatusResponder, oracle.InadequateCertType},
		{"SA", "OS", purpose.StatusResponder, oracle.InadequateCertType},
		{"OS_SA", "OS", purpose.StatusResponder, oracle.Success},
		{"NONE", "OS_SA", purpose.SSLServer, oracle.InadequateCertType},
		{"NONE", "CA", purpose.SSLClient, oracle.Success},
		{"SA", "CA", purpose.SSLClient, oracle.InadequateCertType},
		{"NS", "CA", purpose.SSLClient, oracle.InadequateCertType},
		{"EP", "EP", purpose.EmailSigner, oracle.Success},
		{"EP_TS", "NONE", purpose.EmailRecipient, oracle.Success},
		{"TS", "EP", purpose.EmailRecipient, oracle.InadequateCertType},
		{"NONE", "NONE", purpose.SSLCA, oracle.InadequateKeyUsage},
		{"CA_EP_NS_OS_SA_TS", "CA_EP_NS_OS_SA_TS", purpose.SSLClient, oracle.InadequateCertType},
		{"CA_EP_NS_OS_SA_TS", "CA_EP_NS_OS_SA_TS", purpose.StatusResponder, oracle.Success},
	}

	for _, tc := range testcases {
		o := mustDecide(t, tc.Intermediate, tc.EndEntity, tc.Purpose)
		if o != tc.Expected {
			t.Errorf("decide(%s, %s, %v) = %v, want %v", tc.Intermediate, tc.EndEntity, tc.Purpose, o, tc.Expected)
		}
	}
}

func TestDecideRoot(t *testing.T) {
	testcases := []struct {
		Intermediate string
		Expected     oracle.Outcome
	}{
		{"NONE", oracle.Success},
		{"SA", oracle.Success},
		{"NS", oracle.Success},
		{"CA_NS", oracle.Success},
		{"CA", oracle.InadequateCertType},
		{"EP_OS", oracle.InadequateCertType},
		{"CA_EP_NS_OS_SA_TS", oracle.Success},
	}

	for _, tc := range testcases {
		c, err := eku.ParseName(tc.Intermediate)
		if err != nil {
			t.Fatal(err)
		}
		if o := oracle.DecideRoot(c); o != tc.Expected {
			t.Errorf("DecideRoot(%s) = %v, want %v", tc.Intermediate, o, tc.Expected)
		}
	}
}

func TestDecide_SSLCAOnEndEntityAlwaysFails(t *testing.T) {
	cs := eku.Enumerate(eku.Atoms).Combinations()
	for _, i := range cs {
		for _, e := range cs {
			o, err := oracle.Decide(i, e, purpose.SSLCA)
			if err != nil {
				t.Fatal(err)
			}
			if o != oracle.InadequateKeyUsage {
				t.Errorf("decide(%s, %s, SSLCA) = %v", i, e, o)
			}
		}
	}
}

func TestDecide_OCSPExclusivity(t *testing.T) {
	cs := eku.Enumerate(eku.Atoms).Combinations()
	for _, i := range cs {
		for _, e := range cs {
			if !e.Has(eku.OCSPSigning) {
				continue
			}
			for _, p := range purpose.All {
				if p == purpose.StatusResponder || p == purpose.SSLCA {
					continue
				}
				o, err := oracle.Decide(i, e, p)
				if err != nil {
					t.Fatal(err)
				}
				if o != oracle.InadequateCertType {
					t.Errorf("decide(%s, %s, %v) = %v", i, e, p, o)
				}
			}
		}
	}
}

func TestDecide_NoneUniversality(t *testing.T) {
	cs := eku.Enumerate(eku.Atoms).Combinations()
	for _, x := range cs {
		for _, p := range purpose.All {
			if p == purpose.SSLCA {
				continue
			}

			// NONE as intermediate: only the end-entity can disqualify.
			o, err := oracle.Decide(eku.None, x, p)
			if err != nil {
				t.Fatal(err)
			}
			required, _ := purpose.RequiredAtom(p)
			eeOK := x.CompatibleWith(required)
			if p == purpose.StatusResponder {
				eeOK = x.Has(eku.OCSPSigning)
			} else if x.Has(eku.OCSPSigning) {
				eeOK = false
			}
			if eeOK && o != oracle.Success {
				t.Errorf("decide(NONE, %s, %v) = %v", x, p, o)
			}

			// NONE as end-entity: OCSP signing requires explicit opt-in.
			o, err = oracle.Decide(x, eku.None, p)
			if err != nil {
				t.Fatal(err)
			}
			if p == purpose.StatusResponder {
				if o != oracle.InadequateCertType {
					t.Errorf("decide(%s, NONE, %v) = %v", x, p, o)
				}
				continue
			}
			intOK := x.CompatibleWith(required)
			if p == purpose.SSLServer {
				intOK = x.IsNone() || x.Has(eku.ServerAuth) || x.Has(eku.NetscapeSGC)
			}
			if intOK && o != oracle.Success {
				t.Errorf("decide(%s, NONE, %v) = %v", x, p, o)
			}
		}
	}
}

func TestDecide_UnsupportedPurpose(t *testing.T) {
	_, err := oracle.Decide(eku.None, eku.None, purpose.Purpose(99))
	if !errors.Is(err, purpose.ErrUnsupportedPurpose) {
		t.Errorf("Expected ErrUnsupportedPurpose, got %v", err)
	}
}

func TestDecideNames_InvalidName(t *testing.T) {
	if _, err := oracle.DecideNames("ZZ", "NONE", purpose.SSLClient); err == nil {
		t.Errorf("Expected error for unknown intermediate combination")
	}
	if _, err := oracle.DecideNames("NONE", "SA_CA", purpose.SSLClient); err == nil {
		t.Errorf("Expected error for non-canonical end-entity combination")
	}
}

// legacyDecide reproduces the substring-based checks the matrix was
// historically generated with, applied to the artifact base names.
func legacyDecide(intName, eeName string, p purpose.Purpose) oracle.Outcome {
	has := strings.Contains
	compatible := func(name, abbr string) bool {
		return has(name, "NONE") || has(name, abbr)
	}

	if p == purpose.SSLCA {
		return oracle.InadequateKeyUsage
	}
	abbr := map[purpose.Purpose]string{
		purpose.StatusResponder: "OS",
		purpose.SSLServer:       "SA",
		purpose.SSLClient:       "CA",
		purpose.EmailSigner:     "EP",
		purpose.EmailRecipient:  "EP",
	}[p]

	if p == purpose.StatusResponder {
		if !has(eeName, "OS") || !compatible(intName, abbr) {
			return oracle.InadequateCertType
		}
		return oracle.Success
	}
	if has(eeName, "OS") {
		return oracle.InadequateCertType
	}
	if p == purpose.SSLServer {
		if !compatible(eeName, abbr) {
			return oracle.InadequateCertType
		}
		if !has(intName, "SA") && !has(intName, "NONE") && !has(intName, "NS") {
			return oracle.InadequateCertType
		}
		return oracle.Success
	}
	if !compatible(eeName, abbr) || !compatible(intName, abbr) {
		return oracle.InadequateCertType
	}
	return oracle.Success
}

func TestDecide_MatchesSubstringPolicy(t *testing.T) {
	cs := eku.Enumerate(eku.Atoms).Combinations()
	for _, i := range cs {
		for _, e := range cs {
			for _, p := range purpose.All {
				o, err := oracle.Decide(i, e, p)
				if err != nil {
					t.Fatal(err)
				}
				legacy := legacyDecide("int-EKU-"+i.Name, "ee-EKU-"+e.Name, p)
				if o != legacy {
					t.Errorf("decide(%s, %s, %v) = %v, substring policy says %v", i, e, p, o, legacy)
				}
			}
		}
	}
}

func TestTable_Idempotent(t *testing.T) {
	render := func() (string, string) {
		tbl, err := oracle.Table(eku.Enumerate(eku.Atoms), purpose.All)
		if err != nil {
			t.Fatal(err)
		}
		var tsv, y bytes.Buffer
		if err := tbl.WriteTSV(&tsv); err != nil {
			t.Fatal(err)
		}
		if err := tbl.WriteYAML(&y); err != nil {
			t.Fatal(err)
		}
		return tsv.String(), y.String()
	}

	tsv1, y1 := render()
	tsv2, y2 := render()
	if tsv1 != tsv2 {
		t.Errorf("TSV rendering is not stable")
	}
	if y1 != y2 {
		t.Errorf("YAML rendering is not stable")
	}
	if !strings.Contains(y1, "purpose: certificateUsageStatusResponder") {
		t.Errorf("YAML lacks purpose constants:\n%.400s", y1)
	}
	if !strings.Contains(tsv1, "SA\tSA\tcertificateUsageSSLServer\t0\n") {
		t.Errorf("TSV lacks expected line")
	}
}

func TestTable_Size(t *testing.T) {
	set := eku.Enumerate(eku.Atoms)
	tbl, err := oracle.Table(set, purpose.All)
	if err != nil {
		t.Fatal(err)
	}

	n := set.Len()
	if len(tbl.RootChecks) != n {
		t.Errorf("Expected %d root checks, got %d", n, len(tbl.RootChecks))
	}
	if len(tbl.Vectors) != n*n*len(purpose.All) {
		t.Errorf("Expected %d vectors, got %d", n*n*len(purpose.All), len(tbl.Vectors))
	}

	total := 0
	for _, c := range tbl.Counts() {
		total += c
	}
	if total != len(tbl.RootChecks)+len(tbl.Vectors) {
		t.Errorf("Counts do not add up: %d", total)
	}
}
