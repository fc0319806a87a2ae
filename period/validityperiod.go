// Package period specifies how long issued certificates stay valid.
package period

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ValidityPeriod struct {
	// Days is ignored if NotAfter is non-zero.
	Days

	// NotAfter is the timestamp the cert is considered valid to (inclusive).
	NotAfter time.Time
}

// Default matches the "-days 3650" the matrix was historically issued with.
var Default = ValidityPeriod{Days: 3650}

var FarFuture = ValidityPeriod{
	// RFC5280 4.1.2.5 suggests 99991231235959Z for certs which never expire,
	// but some implementations have issues handling the date.
	NotAfter: time.Date(2099, 12, 31, 23, 59, 0, 0, time.UTC),
}

func (p ValidityPeriod) GetNotAfter(base time.Time) time.Time {
	if !p.NotAfter.IsZero() {
		return p.NotAfter
	}
	return base.Add(time.Duration(p.Days) * 24 * time.Hour)
}

// DaysFrom returns the validity in whole days counted from base, rounding up.
func (p ValidityPeriod) DaysFrom(base time.Time) (Days, error) {
	if p.NotAfter.IsZero() {
		return p.Days, nil
	}
	d := p.NotAfter.Sub(base)
	if d <= 0 {
		return 0, fmt.Errorf("NotAfter %v is not after %v", p.NotAfter, base)
	}
	return Days(math.Ceil(d.Hours() / 24)), nil
}

const notAfterLayout = "20060102"

func (p ValidityPeriod) String() string {
	if p.NotAfter.Equal(FarFuture.NotAfter) {
		return "farfuture"
	}
	if !p.NotAfter.IsZero() {
		return p.NotAfter.Format(notAfterLayout)
	}
	return p.Days.String()
}

func (p ValidityPeriod) Verify() error {
	if p.NotAfter.IsZero() && p.Days == 0 {
		return fmt.Errorf("validity period must not be empty")
	}
	return nil
}

func (p *ValidityPeriod) UnmarshalFlag(s string) error {
	if strings.ToLower(s) == "farfuture" {
		*p = FarFuture
		return nil
	}
	var d Days
	if err := d.UnmarshalFlag(s); err == nil {
		*p = ValidityPeriod{Days: d}
		return nil
	}
	if t, err := time.ParseInLocation(notAfterLayout, s, time.Local); err == nil {
		*p = ValidityPeriod{NotAfter: t}
		return nil
	}

	return fmt.Errorf("Failed to parse ValidityPeriod %q. Try something like 30d, 10y, or 20350530.", s)
}

func (p *ValidityPeriod) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.UnmarshalFlag(s)
}

func (p ValidityPeriod) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}
