package frontend

import (
	"sort"
	"strings"

	"github.com/jward/cppreflect/internal/extract"
	"github.com/jward/cppreflect/internal/model"
)

// Preprocessor is the macro table of a session. It starts with the
// predefined macros for the invocation's language and standard, applies
// the command line's -D/-U in order, and is then updated by the #define and
// #undef directives of the unit being compiled.
type Preprocessor struct {
	defs    map[string]string
	origins map[string]string
}

var _ extract.Macros = (*Preprocessor)(nil)

var cplusplusValue = map[string]string{
	"98": "199711L", "03": "199711L",
	"11": "201103L", "0x": "201103L",
	"14": "201402L", "1y": "201402L",
	"17": "201703L", "1z": "201703L",
	"20": "202002L", "2a": "202002L",
	"23": "202302L", "2b": "202302L",
}

var stdcVersionValue = map[string]string{
	"99": "199901L", "9x": "199901L", "1999": "199901L",
	"11": "201112L", "1x": "201112L", "2011": "201112L",
	"17": "201710L", "18": "201710L", "2017": "201710L", "2018": "201710L",
	"23": "202311L", "2x": "202311L",
}

// NewPreprocessor builds the initial macro table for inv.
func NewPreprocessor(inv *Invocation) *Preprocessor {
	p := &Preprocessor{
		defs:    make(map[string]string),
		origins: make(map[string]string),
	}
	p.predefine("__STDC__", "1")
	p.predefine("__STDC_HOSTED__", "1")

	std := inv.Standard
	gnu := strings.HasPrefix(std, "gnu")
	if !gnu {
		p.predefine("__STRICT_ANSI__", "1")
	}
	if inv.Language == extract.LangCPP {
		p.predefine("__cplusplus", cplusplusValue[standardYear(std)])
	} else if v, ok := stdcVersionValue[standardYear(std)]; ok {
		p.predefine("__STDC_VERSION__", v)
	}

	for _, op := range inv.Macros {
		if op.Define {
			p.defs[op.Name] = op.Value
			p.origins[op.Name] = model.OriginCommandLine
		} else {
			p.Undefine(op.Name)
		}
	}
	return p
}

// standardYear strips the dialect prefix: "c++17" -> "17", "gnu11" -> "11",
// "iso9899:2011" -> "2011".
func standardYear(std string) string {
	for _, prefix := range []string{"gnu++", "c++", "gnu", "iso9899:", "c"} {
		if strings.HasPrefix(std, prefix) {
			return strings.TrimPrefix(std, prefix)
		}
	}
	return std
}

func (p *Preprocessor) predefine(name, value string) {
	p.defs[name] = value
	p.origins[name] = model.OriginBuiltin
}

func (p *Preprocessor) Defined(name string) bool {
	_, ok := p.defs[name]
	return ok
}

func (p *Preprocessor) Value(name string) (string, bool) {
	v, ok := p.defs[name]
	return v, ok
}

// Define records a macro defined by the source being compiled.
func (p *Preprocessor) Define(name, value string) {
	p.defs[name] = value
	p.origins[name] = model.OriginSource
}

func (p *Preprocessor) Undefine(name string) {
	delete(p.defs, name)
	delete(p.origins, name)
}

// Origin reports where name was defined.
func (p *Preprocessor) Origin(name string) (string, bool) {
	o, ok := p.origins[name]
	return o, ok
}

// Names returns the defined macro names, sorted.
func (p *Preprocessor) Names() []string {
	names := make([]string, 0, len(p.defs))
	for name := range p.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy, so a compile does not leak source
// definitions back into the session's command-line state.
func (p *Preprocessor) Clone() *Preprocessor {
	c := &Preprocessor{
		defs:    make(map[string]string, len(p.defs)),
		origins: make(map[string]string, len(p.origins)),
	}
	for k, v := range p.defs {
		c.defs[k] = v
	}
	for k, v := range p.origins {
		c.origins[k] = v
	}
	return c
}

// Macros returns the current table as model macros, sorted by name.
func (p *Preprocessor) Macros() []*model.Macro {
	names := p.Names()
	out := make([]*model.Macro, 0, len(names))
	for _, name := range names {
		out = append(out, &model.Macro{Name: name, Value: p.defs[name], Origin: p.origins[name]})
	}
	return out
}
