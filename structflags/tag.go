package structflags

import (
	"fmt"
	"html"
	"log"
	"reflect"
	"strings"

	"github.com/urfave/cli/v2"
)

// ParsedTag is the parsed form of a `flags:"name,usage,aliases,opts..."` tag.
// Commas in usage are written as "&comma;". Aliases are separated by ";".
type ParsedTag struct {
	Name    string
	Usage   string
	Aliases []string
	Opts    map[string]struct{}
}

func Parse(tag reflect.StructTag, parent *ParsedTag) *ParsedTag {
	tagstr, ok := tag.Lookup("flags")
	if !ok {
		return nil
	}

	parsed := &ParsedTag{}

	ss := strings.Split(tagstr, ",")
	if len(ss) > 0 {
		parsed.Name = ss[0]
		if parent != nil && parent.Name != "" {
			parsed.Name = fmt.Sprintf("%s.%s", parent.Name, parsed.Name)
		}
	}
	if len(ss) > 1 {
		parsed.Usage = html.UnescapeString(ss[1])
	}
	if len(ss) > 2 {
		aliases := strings.Split(ss[2], ";")
		for _, e := range aliases {
			if e == "" {
				continue
			}
			parsed.Aliases = append(parsed.Aliases, e)
		}
	}
	if len(ss) > 3 {
		parsed.Opts = make(map[string]struct{})
		for _, e := range ss[3:] {
			parsed.Opts[e] = struct{}{}
		}
	}

	return parsed
}

func (parsed *ParsedTag) HasOpt(opt string) bool {
	_, ok := parsed.Opts[opt]
	return ok
}

// defaultText renders the current field value shown as the flag default.
func defaultText(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return ""
}

// ToCliFlag builds the flag for a field holding v. Fields implementing
// Unmarshaler become string flags.
func (parsed *ParsedTag) ToCliFlag(v reflect.Value) cli.Flag {
	required := parsed.HasOpt("required")
	hidden := parsed.HasOpt("hidden")

	if isUnmarshaler(v) {
		return &cli.StringFlag{
			Name:     parsed.Name,
			Usage:    parsed.Usage,
			Aliases:  parsed.Aliases,
			Required: required,
			Hidden:   hidden,
			Value:    defaultText(v),
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return &cli.BoolFlag{
			Name:     parsed.Name,
			Usage:    parsed.Usage,
			Aliases:  parsed.Aliases,
			Required: required,
			Hidden:   hidden,
		}

	case reflect.Int:
		return &cli.IntFlag{
			Name:     parsed.Name,
			Usage:    parsed.Usage,
			Aliases:  parsed.Aliases,
			Required: required,
			Hidden:   hidden,
			Value:    int(v.Int()),
		}

	case reflect.String:
		if parsed.HasOpt("path") {
			return &cli.PathFlag{
				Name:     parsed.Name,
				Usage:    parsed.Usage,
				Aliases:  parsed.Aliases,
				Required: required,
				Hidden:   hidden,
				Value:    v.String(),
			}
		}
		return &cli.StringFlag{
			Name:     parsed.Name,
			Usage:    parsed.Usage,
			Aliases:  parsed.Aliases,
			Required: required,
			Hidden:   hidden,
			Value:    v.String(),
		}

	default:
		log.Panicf("ToCliFlag: unknown kind %v", v.Kind())
		return nil
	}
}
