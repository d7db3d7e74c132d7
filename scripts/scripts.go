// Package scripts embeds the built-in codegen scripts.
package scripts

import "embed"

// FS holds the built-in .risor scripts at its root.
//
//go:embed *.risor
var FS embed.FS
