package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateDir checks that s is a dir, or that it could be created as one.
func ValidateDir(s string) error {
	s = filepath.Clean(s)
	for s != "." && s != string(filepath.Separator) {
		fi, err := os.Stat(s)
		if err != nil {
			if os.IsNotExist(err) {
				s = filepath.Dir(s)
				continue
			}
			return fmt.Errorf("os.Stat(%q): %w", s, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("%q is not a dir.", s)
		}

		return nil
	}

	return nil
}

// ValidateFile checks that s is either an existing regular file or a new
// file in a potentially valid dir.
func ValidateFile(s string) error {
	s = filepath.Clean(s)

	fi, err := os.Stat(s)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("os.Stat(%q): %w", s, err)
	}
	if err == nil {
		if fi.IsDir() {
			return fmt.Errorf("File dest %q is a dir.", s)
		}

		// File exists.
		return nil
	}

	if err := ValidateDir(filepath.Dir(s)); err != nil {
		return err
	}

	return nil
}
