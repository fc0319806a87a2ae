package testutils

import (
	"errors"
	"os"
	"path"
	"regexp"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func PrepareBasedir(t *testing.T) string {
	t.Helper()

	basedir, err := os.MkdirTemp("", "ekumatrix-testdir-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(basedir) })

	return basedir
}

// ObservedLogger returns a logger recording every entry at debug level and above.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func ExpectFile(t *testing.T, basedir string, relpath string) {
	t.Helper()

	filepath := path.Join(basedir, relpath)

	if _, err := os.Stat(filepath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Unexpected error when Stat(%q): %v", filepath, err)
		}
		t.Errorf("File %s does not exist.", filepath)
		return
	}
}

func ExpectFileNotExist(t *testing.T, basedir, relpath string) {
	t.Helper()

	filepath := path.Join(basedir, relpath)

	if _, err := os.Stat(filepath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		t.Errorf("Unexpected error when Stat(%q): %v", filepath, err)
		return
	}
	t.Errorf("File %s exists while it shouldn't.", filepath)
}

func ExpectLogMessage(t *testing.T, logs *observer.ObservedLogs, expectedRE string) {
	t.Helper()

	re := regexp.MustCompile(expectedRE)
	for _, l := range logs.All() {
		if re.MatchString(l.Message) {
			return
		}
	}

	t.Errorf("Could not find a log line that matches %s", expectedRE)
}

func ExpectErrMessage(t *testing.T, err error, expectedRE string) {
	t.Helper()

	if err == nil {
		t.Errorf("No error occured while expecting error message that match %s", expectedRE)
		return
	}

	re := regexp.MustCompile(expectedRE)

	msg := err.Error()
	if re.MatchString(msg) {
		return
	}

	t.Errorf("Error message %q doesn't match %s", msg, expectedRE)
}

func ExpectErr(t *testing.T, actual, expected error) {
	t.Helper()

	if errors.Is(actual, expected) {
		return
	}
	if expected == nil {
		t.Errorf("Expected no error but got error: %v", actual)
		return
	}
	t.Errorf("Expected err %v, but got err: %v", expected, actual)
}
