// Package flags parses the options of a single verb. Each verb declares
// its own schema of options, so a short letter can mean different
// things for different verbs without ambiguity.
//
// Three token shapes are understood: long options (`--name`,
// `--name=value`), single short options (`-x`) and clusters of short
// options (`-xyz`). A value-taking short option has to end its cluster
// and takes its value from the next token; `-s=5` and `-s5` are
// rejected rather than guessed at. Everything else is a positional
// argument, kept in order.
package flags

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

type Type int

const (
	Bool Type = iota
	String
	Int
)

// Option declares one option of a verb.
type Option struct {
	Name    string // long name, used as the key in the OptionSet
	Short   string // single letter, or empty
	Type    Type
	Default string
	Usage   string
}

func (o Option) takesValue() bool {
	return o.Type != Bool
}

// Options shared by most verbs.
var (
	Yes   = Option{Name: "yes", Short: "y", Type: Bool, Usage: "don't ask for confirmation"}
	Debug = Option{Name: "debug", Short: "d", Type: Bool, Usage: "log each step and external command"}
	Step  = Option{Name: "step", Short: "s", Type: Int, Default: "1", Usage: "resume from step `N`"}
	Open  = Option{Name: "open", Short: "o", Type: Bool, Usage: "print a one-time login link when done"}
	Help  = Option{Name: "help", Short: "h", Type: Bool, Usage: "show usage"}
)

// Schema is the set of options accepted by one verb.
type Schema struct {
	verb    string
	options []Option
	long    map[string]Option
	short   map[byte]Option
}

// NewSchema checks the options for clashes and returns a schema for
// the verb.
func NewSchema(verb string, options ...Option) (*Schema, error) {
	s := &Schema{
		verb:  verb,
		long:  map[string]Option{},
		short: map[byte]Option{},
	}
	for _, o := range options {
		if o.Name == "" || strings.HasPrefix(o.Name, "-") || strings.Contains(o.Name, "=") {
			return nil, fmt.Errorf("%s: invalid option name %q", verb, o.Name)
		}
		if _, ok := s.long[o.Name]; ok {
			return nil, fmt.Errorf("%s: option --%s declared twice", verb, o.Name)
		}
		if len(o.Short) > 1 || o.Short == "-" || o.Short == "=" {
			return nil, fmt.Errorf("%s: invalid short form %q for --%s", verb, o.Short, o.Name)
		}
		if o.Short != "" {
			if prev, ok := s.short[o.Short[0]]; ok {
				return nil, fmt.Errorf("%s: -%s used by both --%s and --%s", verb, o.Short, prev.Name, o.Name)
			}
			s.short[o.Short[0]] = o
		}
		s.long[o.Name] = o
		s.options = append(s.options, o)
	}
	return s, nil
}

// MustSchema is NewSchema for schemas declared in code.
func MustSchema(verb string, options ...Option) *Schema {
	s, err := NewSchema(verb, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// OptionSet is the result of parsing: the value of every option in the
// schema (defaults included), whether it was given, and the positional
// arguments in order.
type OptionSet struct {
	values map[string]string
	set    map[string]bool
	Args   []string
}

func (o OptionSet) Bool(name string) bool {
	return o.values[name] == "true"
}

func (o OptionSet) String(name string) string {
	return o.values[name]
}

// Int returns the value of an Int option. Values have already been
// checked during parsing.
func (o OptionSet) Int(name string) int {
	n, _ := strconv.Atoi(o.values[name])
	return n
}

// Changed says whether the option was given on the command line.
func (o OptionSet) Changed(name string) bool {
	return o.set[name]
}

// Parse decodes the tokens following the verb.
func (s *Schema) Parse(tokens []string) (OptionSet, error) {
	var (
		normalized []string
		positional []string
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "--":
			positional = append(positional, tokens[i+1:]...)
			i = len(tokens)

		case strings.HasPrefix(tok, "--"):
			name, value, hasValue := strings.Cut(tok[2:], "=")
			opt, ok := s.long[name]
			if !ok {
				return OptionSet{}, s.unknown(tok, "")
			}
			switch {
			case hasValue:
				normalized = append(normalized, "--"+name+"="+value)
			case !opt.takesValue():
				normalized = append(normalized, "--"+name)
			case i+1 < len(tokens) && !s.isOption(tokens[i+1]):
				i++
				normalized = append(normalized, "--"+name+"="+tokens[i])
			default:
				return OptionSet{}, nwperr.Errorf(nwperr.MissingValue, "%s: option --%s needs a value", s.verb, name)
			}

		case len(tok) > 1 && tok[0] == '-':
			cluster := tok[1:]
			for j := 0; j < len(cluster); j++ {
				c := cluster[j]
				if c == '=' {
					return OptionSet{}, s.unknown(tok, "short options don't take '=value'")
				}
				opt, ok := s.short[c]
				if !ok {
					return OptionSet{}, s.unknown("-"+string(c), "")
				}
				if !opt.takesValue() {
					normalized = append(normalized, "--"+opt.Name)
					continue
				}
				if j < len(cluster)-1 {
					if cluster[j+1] == '=' {
						return OptionSet{}, s.unknown(tok, fmt.Sprintf("short options don't take '=value'; use -%c <value> or --%s=<value>", c, opt.Name))
					}
					return OptionSet{}, nwperr.Errorf(nwperr.MissingValue, "%s: option -%c (--%s) takes a value, so it must come last in %q and be followed by the value", s.verb, c, opt.Name, tok)
				}
				if i+1 >= len(tokens) || s.isOption(tokens[i+1]) {
					return OptionSet{}, nwperr.Errorf(nwperr.MissingValue, "%s: option -%c (--%s) needs a value", s.verb, c, opt.Name)
				}
				i++
				normalized = append(normalized, "--"+opt.Name+"="+tokens[i])
			}

		default:
			positional = append(positional, tok)
		}
	}

	fs := s.flagSet()
	if err := fs.Parse(normalized); err != nil {
		return OptionSet{}, nwperr.Errorf(nwperr.InvalidValue, "%s: %s", s.verb, err.Error())
	}

	set := OptionSet{
		values: map[string]string{},
		set:    map[string]bool{},
		Args:   positional,
	}
	fs.VisitAll(func(f *pflag.Flag) {
		set.values[f.Name] = f.Value.String()
		if f.Changed {
			set.set[f.Name] = true
		}
	})
	return set, nil
}

// isOption says whether tok would parse as one of the schema's options.
// Such a token is never taken as the value of the option before it.
func (s *Schema) isOption(tok string) bool {
	switch {
	case strings.HasPrefix(tok, "--"):
		name, _, _ := strings.Cut(tok[2:], "=")
		_, ok := s.long[name]
		return ok
	case len(tok) > 1 && tok[0] == '-':
		_, ok := s.short[tok[1]]
		return ok
	}
	return false
}

func (s *Schema) unknown(tok, why string) error {
	if why != "" {
		return nwperr.Errorf(nwperr.UnknownOption, "%s: unknown option %q: %s", s.verb, tok, why)
	}
	return nwperr.Errorf(nwperr.UnknownOption, "%s: unknown option %q", s.verb, tok)
}

// Usage renders the options for help output.
func (s *Schema) Usage() string {
	return s.flagSet().FlagUsages()
}

func (s *Schema) flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(s.verb, pflag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	fs.SortFlags = false
	for _, o := range s.options {
		switch o.Type {
		case Bool:
			fs.BoolP(o.Name, o.Short, o.Default == "true", o.Usage)
		case Int:
			def, _ := strconv.Atoi(o.Default)
			fs.IntP(o.Name, o.Short, def, o.Usage)
		default:
			fs.StringP(o.Name, o.Short, o.Default, o.Usage)
		}
	}
	return fs
}
