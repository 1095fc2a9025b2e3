package minify

import (
	"path/filepath"
	"strings"
)

type Kind int

const (
	KindOpaque = Kind(iota) // copied verbatim, never minified
	KindMarkup
	KindStylesheet
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindMarkup:
		return "markup"
	case KindStylesheet:
		return "stylesheet"
	case KindScript:
		return "script"
	default:
		return "<invalid>"
	}
}

// KindOf classifies a file by its extension.
func KindOf(fn string) Kind {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".html", ".htm":
		return KindMarkup
	case ".css":
		return KindStylesheet
	case ".js", ".mjs":
		return KindScript
	}
	return KindOpaque
}
