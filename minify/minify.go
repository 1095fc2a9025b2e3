package minify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	tdm "github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// Minifier turns source text of a given kind into an equivalent, smaller text.
// Opaque content is returned unchanged.
type Minifier interface {
	Minify(kind Kind, src string) (string, error)
}

// Error reports content rejected by a minifier.
type Error struct {
	Kind     Kind
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("malformed %s", e.Kind)
	}
	return fmt.Sprintf("malformed %s: %s", e.Kind, strings.Join(e.Messages, "; "))
}

type minifier struct {
	markup *tdm.M
}

var reScriptType = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)

// New returns the default Minifier: esbuild for stylesheets and scripts,
// tdewolff/minify for markup.
func New() Minifier {
	m := tdm.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(reScriptType, js.Minify)
	return &minifier{markup: m}
}

func (m *minifier) Minify(kind Kind, src string) (string, error) {
	switch kind {
	case KindMarkup:
		out, err := m.markup.String("text/html", src)
		if err != nil {
			return "", &Error{Kind: kind, Messages: []string{err.Error()}}
		}
		return out, nil
	case KindStylesheet:
		return transform(kind, src, api.TransformOptions{
			Loader:           api.LoaderCSS,
			MinifyWhitespace: true,
			MinifySyntax:     true,
			LogLevel:         api.LogLevelSilent,
		})
	case KindScript:
		// no identifier renaming: esbuild picks names by frequency, so
		// renamed output would not be stable under re-minification
		return transform(kind, src, api.TransformOptions{
			Loader:           api.LoaderJS,
			MinifyWhitespace: true,
			MinifySyntax:     true,
			LogLevel:         api.LogLevelSilent,
		})
	}
	return src, nil
}

func transform(kind Kind, src string, opts api.TransformOptions) (string, error) {
	result := api.Transform(src, opts)
	if len(result.Errors) > 0 {
		e := &Error{Kind: kind}
		for _, msg := range result.Errors {
			if msg.Location != nil {
				e.Messages = append(e.Messages, fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text))
			} else {
				e.Messages = append(e.Messages, msg.Text)
			}
		}
		return "", e
	}
	return string(result.Code), nil
}
