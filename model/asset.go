package model

import (
	"errors"
	"fmt"
)

// Asset is one source path (file or directory) materialized into a target
// directory under Dst. Src is absolute; Name keeps the configured spelling
// for log output.
type Asset struct {
	Name   string
	Src    string
	Dst    string
	IsDir  bool
	Minify bool
}

var ErrMissingSource = errors.New("source not found")

// MinifyError reports a file whose content was rejected by the minifier.
type MinifyError struct {
	Path string
	Err  error
}

func (e *MinifyError) Error() string {
	return fmt.Sprintf("minifying %s: %s", e.Path, e.Err)
}

func (e *MinifyError) Unwrap() error { return e.Err }

func (a *Asset) String() string {
	s := a.Name
	if a.IsDir {
		s += "/"
	}
	if a.Minify {
		s += " (minify)"
	}
	return s
}
