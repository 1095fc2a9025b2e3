package model

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adnsv/extpack/minify"
	log "github.com/sirupsen/logrus"
)

// Target is a named, ordered collection of assets sharing one output
// subdirectory.
type Target struct {
	Name   string
	Assets []Asset
}

type AssetFailure struct {
	Asset *Asset
	Err   error
}

// Report summarizes one Target.Build run.
type Report struct {
	Target  string
	Dir     string
	Built   []string
	Failed  []AssetFailure
	Elapsed time.Duration
}

func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Dir returns the output directory of the target under outRoot.
func (t *Target) Dir(outRoot string) string {
	return filepath.Join(outRoot, t.Name)
}

// Build materializes every asset in declared order. A failing asset is
// logged and recorded in the report; the remaining assets are still built.
func (t *Target) Build(outRoot string, m minify.Minifier, ignore *Matcher) *Report {
	start := time.Now()
	logger := log.WithField("target", t.Name)
	r := &Report{Target: t.Name, Dir: t.Dir(outRoot)}

	logger.Infof("building %s", t.Name)
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		logger.Errorf("cannot create %s: %s", r.Dir, err)
		for i := range t.Assets {
			r.Failed = append(r.Failed, AssetFailure{Asset: &t.Assets[i], Err: err})
		}
		r.Elapsed = time.Since(start)
		return r
	}

	for i := range t.Assets {
		a := &t.Assets[i]
		alog := logger.WithField("asset", a.Name)
		alog.Debugf("materializing %s", a)
		err := a.Materialize(r.Dir, m, ignore)
		var merr *MinifyError
		switch {
		case err == nil:
			r.Built = append(r.Built, a.Name)
			if a.Minify {
				alog.Infof("- minified and copied %s to %s", a.Name, filepath.Join(r.Dir, a.Dst))
			} else {
				alog.Infof("- copied %s to %s", a.Name, filepath.Join(r.Dir, a.Dst))
			}
			continue
		case errors.Is(err, ErrMissingSource):
			alog.Warnf("%s not found, skipping", a.Name)
		case errors.As(err, &merr):
			alog.WithField("path", merr.Path).Errorf("cannot minify %s: %s", a.Name, merr.Err)
		default:
			alog.Errorf("error copying %s: %s", a.Name, err)
		}
		r.Failed = append(r.Failed, AssetFailure{Asset: a, Err: err})
	}

	r.Elapsed = time.Since(start)
	if r.OK() {
		logger.Infof("%s build complete (%d assets, %s)", t.Name, len(r.Built), r.Elapsed.Round(time.Millisecond))
	} else {
		logger.Warnf("%s build complete with %d failed asset(s)", t.Name, len(r.Failed))
	}
	return r
}
