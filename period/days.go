package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Days is a period counted in whole days. A year is always 365 days.
type Days uint

func (d Days) String() string {
	y, rd := d/365, d%365
	switch {
	case y == 0:
		return fmt.Sprintf("%dd", rd)
	case rd == 0:
		return fmt.Sprintf("%dy", y)
	default:
		return fmt.Sprintf("%dy%dd", y, rd)
	}
}

var reDays = regexp.MustCompile(`^(?:(\d+)y)?(?:(\d+)d)?$`)

func (d *Days) UnmarshalFlag(s string) error {
	ms := reDays.FindStringSubmatch(strings.TrimSpace(s))
	if ms == nil || (ms[1] == "" && ms[2] == "") {
		return fmt.Errorf("Failed to parse Days %q. Try something like 30d, 1y, 1y30d.", s)
	}

	var total uint64
	if ms[1] != "" {
		y, err := strconv.ParseUint(ms[1], 10, 32)
		if err != nil {
			return fmt.Errorf("Failed to parse years uint %q.", ms[1])
		}
		total += y * 365
	}
	if ms[2] != "" {
		u, err := strconv.ParseUint(ms[2], 10, 32)
		if err != nil {
			return fmt.Errorf("Failed to parse days uint %q.", ms[2])
		}
		total += u
	}
	*d = Days(uint(total))
	return nil
}

func (d *Days) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalFlag(s)
}
