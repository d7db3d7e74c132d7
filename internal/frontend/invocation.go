// Package frontend recreates a compiler session from a build command: it
// parses the argv of a compilation database entry into an Invocation
// (language, standard, macros, include paths), sets up the preprocessor
// and compiles or rehydrates translation units in that session.
package frontend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/cppreflect/internal/diag"
	"github.com/jward/cppreflect/internal/extract"
)

// ErrInvalidCommandLine is returned when a build command cannot be turned
// into a session.
var ErrInvalidCommandLine = errors.New("frontend: invalid command line")

// Default standards when -std is absent.
const (
	DefaultCStandard   = "c17"
	DefaultCPPStandard = "c++17"
)

// MacroOp is one -D or -U from the command line, in order.
type MacroOp struct {
	Name   string
	Value  string
	Define bool
}

// Invocation is a parsed build command.
type Invocation struct {
	Driver      string
	Directory   string
	Input       string // absolute
	Output      string
	Language    string // extract.LangC or extract.LangCPP
	Standard    string
	Macros      []MacroOp
	Includes    []string // -I, in order
	System      []string // -isystem
	Quote       []string // -iquote
	ForceIncl   []string // -include
	Diagnostics *diag.Bag
}

var cStandards = map[string]bool{
	"c89": true, "c90": true, "c99": true, "c11": true, "c17": true, "c18": true, "c23": true, "c2x": true,
	"gnu89": true, "gnu90": true, "gnu99": true, "gnu11": true, "gnu17": true, "gnu18": true, "gnu23": true, "gnu2x": true,
	"iso9899:1990": true, "iso9899:1999": true, "iso9899:2011": true, "iso9899:2017": true,
}

var cppStandards = map[string]bool{
	"c++98": true, "c++03": true, "c++11": true, "c++14": true, "c++17": true, "c++20": true, "c++23": true,
	"c++0x": true, "c++1y": true, "c++1z": true, "c++2a": true, "c++2b": true,
	"gnu++98": true, "gnu++03": true, "gnu++11": true, "gnu++14": true, "gnu++17": true, "gnu++20": true, "gnu++23": true,
	"gnu++0x": true, "gnu++1y": true, "gnu++1z": true, "gnu++2a": true, "gnu++2b": true,
}

// languageForX maps -x values to languages.
var languageForX = map[string]string{
	"c":          extract.LangC,
	"c-header":   extract.LangC,
	"c++":        extract.LangCPP,
	"c++-header": extract.LangCPP,
}

// flags that take a separate argument which we accept and ignore.
var ignoredWithArg = map[string]bool{
	"-MF": true, "-MT": true, "-MQ": true, "-target": true, "-arch": true,
	"-isysroot": true, "--sysroot": true, "-Xclang": true, "-imacros": true,
	"-idirafter": true, "-main-file-name": true, "-resource-dir": true,
}

// ParseInvocation parses argv (argv[0] is the driver) relative to the
// working directory dir.
func ParseInvocation(args []string, dir string) (*Invocation, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty argument list", ErrInvalidCommandLine)
	}
	inv := &Invocation{
		Driver:      args[0],
		Directory:   dir,
		Diagnostics: diag.NewBag(0),
	}

	var inputs []string
	xLang := ""
	for i := 1; i < len(args); i++ {
		arg := args[i]

		// next returns the value of a flag given either joined (-Ifoo) or
		// separate (-I foo).
		next := func(flag string) (string, error) {
			if len(arg) > len(flag) {
				return strings.TrimPrefix(arg[len(flag):], "="), nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%w: missing argument to %s", ErrInvalidCommandLine, flag)
			}
			i++
			return args[i], nil
		}

		switch {
		case arg == "--":
			inputs = append(inputs, args[i+1:]...)
			i = len(args)
		case !strings.HasPrefix(arg, "-") || arg == "-":
			inputs = append(inputs, arg)
		case strings.HasPrefix(arg, "-std="):
			inv.Standard = strings.TrimPrefix(arg, "-std=")
		case strings.HasPrefix(arg, "--std="):
			inv.Standard = strings.TrimPrefix(arg, "--std=")
		case strings.HasPrefix(arg, "-x"):
			v, err := next("-x")
			if err != nil {
				return nil, err
			}
			lang, ok := languageForX[v]
			if !ok {
				return nil, fmt.Errorf("%w: unknown language %q for -x", ErrInvalidCommandLine, v)
			}
			xLang = lang
		case strings.HasPrefix(arg, "-D"):
			v, err := next("-D")
			if err != nil {
				return nil, err
			}
			name, value := splitDefine(v)
			if name == "" {
				return nil, fmt.Errorf("%w: empty macro name in %s", ErrInvalidCommandLine, arg)
			}
			inv.Macros = append(inv.Macros, MacroOp{Name: name, Value: value, Define: true})
		case strings.HasPrefix(arg, "-U"):
			v, err := next("-U")
			if err != nil {
				return nil, err
			}
			inv.Macros = append(inv.Macros, MacroOp{Name: v})
		case strings.HasPrefix(arg, "-isystem"):
			v, err := next("-isystem")
			if err != nil {
				return nil, err
			}
			inv.System = append(inv.System, inv.abs(v))
		case strings.HasPrefix(arg, "-iquote"):
			v, err := next("-iquote")
			if err != nil {
				return nil, err
			}
			inv.Quote = append(inv.Quote, inv.abs(v))
		case arg == "-include" || strings.HasPrefix(arg, "-include="):
			v, err := next("-include")
			if err != nil {
				return nil, err
			}
			inv.ForceIncl = append(inv.ForceIncl, inv.abs(v))
		case strings.HasPrefix(arg, "-I"):
			v, err := next("-I")
			if err != nil {
				return nil, err
			}
			inv.Includes = append(inv.Includes, inv.abs(v))
		case strings.HasPrefix(arg, "-o"):
			v, err := next("-o")
			if err != nil {
				return nil, err
			}
			inv.Output = v
		case ignoredWithArg[arg]:
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: missing argument to %s", ErrInvalidCommandLine, arg)
			}
			i++
		case accepted(arg):
		default:
			inv.Diagnostics.Addf(diag.SevWarning, 0, 0, "argument unused during compilation: '%s'", arg)
		}
	}

	switch len(inputs) {
	case 0:
		return nil, fmt.Errorf("%w: no input file", ErrInvalidCommandLine)
	case 1:
	default:
		return nil, fmt.Errorf("%w: multiple input files: %s", ErrInvalidCommandLine, strings.Join(inputs, ", "))
	}
	inv.Input = inv.abs(inputs[0])

	inv.Language = xLang
	if inv.Language == "" {
		lang, ok := extract.LanguageForFile(inv.Input)
		if !ok {
			// Unknown extensions take the language of the requested standard.
			switch {
			case cppStandards[inv.Standard]:
				lang = extract.LangCPP
			case cStandards[inv.Standard]:
				lang = extract.LangC
			default:
				return nil, fmt.Errorf("%w: cannot determine language of %s", ErrInvalidCommandLine, inv.Input)
			}
		}
		inv.Language = lang
		// A .h compiled by a C++ driver or with a C++ standard is C++.
		if lang == extract.LangC && (cppStandards[inv.Standard] || isCPPDriver(inv.Driver)) && strings.HasSuffix(inv.Input, ".h") {
			inv.Language = extract.LangCPP
		}
	}

	if inv.Standard == "" {
		inv.Standard = DefaultCStandard
		if inv.Language == extract.LangCPP {
			inv.Standard = DefaultCPPStandard
		}
	}
	switch {
	case cStandards[inv.Standard]:
		if inv.Language != extract.LangC {
			return nil, fmt.Errorf("%w: invalid argument '-std=%s' not allowed with 'C++'", ErrInvalidCommandLine, inv.Standard)
		}
	case cppStandards[inv.Standard]:
		if inv.Language != extract.LangCPP {
			return nil, fmt.Errorf("%w: invalid argument '-std=%s' not allowed with 'C'", ErrInvalidCommandLine, inv.Standard)
		}
	default:
		return nil, fmt.Errorf("%w: invalid value '%s' in '-std=%s'", ErrInvalidCommandLine, inv.Standard, inv.Standard)
	}
	return inv, nil
}

func (inv *Invocation) abs(p string) string {
	if filepath.IsAbs(p) || inv.Directory == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(inv.Directory, p)
}

func splitDefine(v string) (name, value string) {
	if i := strings.IndexByte(v, '='); i >= 0 {
		return v[:i], v[i+1:]
	}
	return v, "1"
}

func accepted(arg string) bool {
	switch arg {
	case "-c", "-E", "-S", "-cc1", "-pipe", "-pthread", "-pedantic", "-w", "-v",
		"-MD", "-MMD", "-MP", "-M", "-MM", "-fsyntax-only", "-nostdinc", "-nostdinc++", "-shared", "-fPIC":
		return true
	}
	for _, prefix := range []string{"-f", "-W", "-O", "-g", "-m", "--driver-mode=", "--target=", "-stdlib="} {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}

func isCPPDriver(driver string) bool {
	base := filepath.Base(driver)
	return strings.HasSuffix(base, "++") || strings.Contains(base, "clang++") || strings.Contains(base, "g++") ||
		base == "cl.exe" || strings.HasSuffix(base, "c++")
}
