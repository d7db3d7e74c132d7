package frontend

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint identifies the session state an invocation establishes:
// language, standard, command-line macros and include search paths. The
// input file, output and driver do not contribute, so the same flags
// produce the same fingerprint for every unit of a project.
func (inv *Invocation) Fingerprint() string {
	h := sha256.New()

	fmt.Fprintf(h, "language:%s\n", inv.Language)
	fmt.Fprintf(h, "standard:%s\n", inv.Standard)
	for _, op := range inv.Macros {
		if op.Define {
			fmt.Fprintf(h, "define:%s=%s\n", op.Name, op.Value)
		} else {
			fmt.Fprintf(h, "undef:%s\n", op.Name)
		}
	}
	for _, dir := range inv.Includes {
		fmt.Fprintf(h, "include:%s\n", dir)
	}
	for _, dir := range inv.System {
		fmt.Fprintf(h, "isystem:%s\n", dir)
	}
	for _, dir := range inv.Quote {
		fmt.Fprintf(h, "iquote:%s\n", dir)
	}
	for _, f := range inv.ForceIncl {
		fmt.Fprintf(h, "force-include:%s\n", f)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
