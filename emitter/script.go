package emitter

import (
	"bufio"
	"fmt"
	"io"

	"github.com/IPA-CyberLab/ekumatrix/oracle"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
)

const scriptHeaderTemplate = `//// AUTOGENERATED FILE, DO NOT EDIT
// -*- Mode: javascript; tab-width: 2; indent-tabs-mode: nil; c-basic-offset: 2 -*-
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

"use strict";

do_get_profile(); // must be called before getting nsIX509CertDB
const certdb = Cc["@mozilla.org/security/x509certdb;1"]
                 .getService(Ci.nsIX509CertDB);

function cert_from_file(filename) {
  let der = readFile(do_get_file("%[1]s/" + filename, false));
  return certdb.constructX509(der, der.length);
}

function load_cert(cert_name, trust_string) {
  var cert_filename = cert_name + ".der";
  addCertFromFile(certdb, "%[1]s/" + cert_filename, trust_string);
  return cert_from_file(cert_filename);
}

function run_test() {
  load_cert("%[2]s", "CT,CT,CT");
`

const scriptFooter = "}\n"

// ScriptHeader returns the script preamble. certDir is the directory, relative
// to the script, holding the DER artifacts and rootName the trust anchor.
func ScriptHeader(certDir, rootName string) string {
	return fmt.Sprintf(scriptHeaderTemplate, certDir, rootName)
}

// RootCheckLine asserts the result of verifying an intermediate itself.
func RootCheckLine(intName string, o oracle.Outcome) string {
	return fmt.Sprintf("  checkCertErrorGeneric(certdb, load_cert('%s', ',,'), %s, %v);\n",
		intName, o.Token(), purpose.SSLCA)
}

// VectorLine asserts the result of verifying an end-entity for p.
func VectorLine(eeName string, o oracle.Outcome, p purpose.Purpose) string {
	return fmt.Sprintf("  checkCertErrorGeneric(certdb, cert_from_file('%s.der'), %s, %v);\n",
		eeName, o.Token(), p)
}

// scriptWriter buffers the script and remembers the first write error, so
// that the emitter loop can check it once per intermediate.
type scriptWriter struct {
	w     *bufio.Writer
	err   error
	lines int
}

func newScriptWriter(w io.Writer) *scriptWriter {
	return &scriptWriter{w: bufio.NewWriter(w)}
}

func (sw *scriptWriter) write(s string) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.w.WriteString(s)
}

func (sw *scriptWriter) Header(certDir, rootName string) {
	sw.write(ScriptHeader(certDir, rootName))
}

func (sw *scriptWriter) RootCheck(intName string, o oracle.Outcome) {
	sw.write("\n")
	sw.write(RootCheckLine(intName, o))
	sw.lines++
}

func (sw *scriptWriter) Vector(eeName string, o oracle.Outcome, p purpose.Purpose) {
	sw.write(VectorLine(eeName, o, p))
	sw.lines++
}

func (sw *scriptWriter) Footer() {
	sw.write(scriptFooter)
}

// Err flushes buffered output and returns the first error encountered.
func (sw *scriptWriter) Err() error {
	if sw.err != nil {
		return sw.err
	}
	sw.err = sw.w.Flush()
	return sw.err
}
