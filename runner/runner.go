package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adnsv/extpack/minify"
	"github.com/adnsv/extpack/model"
	"github.com/adnsv/extpack/pack"
	"github.com/adnsv/extpack/watch"
	log "github.com/sirupsen/logrus"
)

type State int

const (
	Idle = State(iota)
	Building
	Done
	Watching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Done:
		return "done"
	case Watching:
		return "watching"
	default:
		return "<invalid>"
	}
}

// UsageError is a configuration or invocation error: unknown mode, invalid
// flag combination, packaging without a build. The process should exit
// non-zero.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

type Options struct {
	Mode string
	Once bool // development only: build once instead of watching
	Zip  bool // production only: package the build
}

type Runner struct {
	Config   *model.Config
	Targets  map[string]*model.Target
	Minifier minify.Minifier
	WorkDir  string

	distDir string
	ignore  *model.Matcher

	mu    sync.Mutex
	state State
}

// New resolves the configuration against workDir. Configuration errors are
// returned as *UsageError.
func New(cfg *model.Config, workDir string, m minify.Minifier) (*Runner, error) {
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, err
	}
	targets, err := cfg.BuildTargets(workDir)
	if err != nil {
		return nil, &UsageError{msg: err.Error()}
	}
	ignore, err := model.NewMatcher(cfg.Ignore)
	if err != nil {
		return nil, &UsageError{msg: err.Error()}
	}
	return &Runner{
		Config:   cfg,
		Targets:  targets,
		Minifier: m,
		WorkDir:  workDir,
		distDir:  filepath.Join(workDir, filepath.FromSlash(cfg.Dist)),
		ignore:   ignore,
	}, nil
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// DistDir is the absolute distribution root.
func (r *Runner) DistDir() string {
	return r.distDir
}

// Target resolves a mode name to its target.
func (r *Runner) Target(mode string) (*model.Target, error) {
	t, ok := r.Targets[model.ResolveMode(mode)]
	if !ok {
		return nil, usageErrorf("unknown mode: %s (available modes: %s)", mode, strings.Join(r.Config.TargetNames(), ", "))
	}
	return t, nil
}

// Run executes one invocation: a one-shot build, a packaged build, or a
// watch session that lasts until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	t, err := r.Target(opts.Mode)
	if err != nil {
		return err
	}
	if opts.Zip && t.Name != model.Production {
		return usageErrorf("zipping is only available for %s mode", model.Production)
	}

	if t.Name == model.Development && !opts.Once {
		return r.Watch(ctx, t)
	}

	if _, err := r.Build(t); err != nil {
		return err
	}
	if opts.Zip {
		if _, err := r.Package(t); err != nil {
			return err
		}
	}
	r.setState(Done)
	return nil
}

// Build runs one build of t. Asset failures are reported through the
// returned report and the log only.
func (r *Runner) Build(t *model.Target) (*model.Report, error) {
	r.setState(Building)
	if err := os.MkdirAll(r.distDir, 0755); err != nil {
		return nil, err
	}
	return t.Build(r.distDir, r.Minifier, r.ignore), nil
}

// Package zips the build output of t into the distribution root and
// returns the archive path.
func (r *Runner) Package(t *model.Target) (string, error) {
	if t.Name != model.Production {
		return "", usageErrorf("zipping is only available for %s mode", model.Production)
	}
	buildDir := t.Dir(r.DistDir())
	if info, err := os.Stat(buildDir); err != nil || !info.IsDir() {
		return "", usageErrorf("build directory %s not found, run build first", buildDir)
	}

	manifest := filepath.Join(r.WorkDir, filepath.FromSlash(r.Config.Manifest))
	version := pack.ManifestVersion(manifest, r.Config.DefaultVersion)
	fn := filepath.Join(r.DistDir(), pack.ArchiveName(r.Config.Product, version))

	if err := pack.Zip(buildDir, fn); err != nil {
		return "", fmt.Errorf("error creating %s: %w", filepath.Base(fn), err)
	}
	log.Infof("- created %s", filepath.Base(fn))
	return fn, nil
}

// Watch builds t, then rebuilds it whenever one of its sources changes
// until ctx is cancelled. The notifier is stopped and joined before
// returning.
func (r *Runner) Watch(ctx context.Context, t *model.Target) error {
	if _, err := r.Build(t); err != nil {
		return err
	}

	mon := watch.NewMonitor(t, r.Config.Debounce, func() {
		if _, err := r.Build(t); err != nil {
			log.Errorf("rebuild of %s failed: %s", t.Name, err)
		}
		r.setState(Watching)
	})
	mon.SetIgnore(r.WorkDir, r.ignore)

	n, err := watch.NewNotifier(r.WorkDir, func(fn string) { mon.OnPathModified(fn) }, r.skipDir)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	r.setState(Watching)
	log.Infof("watching for changes in %s mode (press Ctrl+C to stop)...", t.Name)

	<-ctx.Done()

	err = n.Stop()
	r.setState(Done)
	log.Infof("- %s mode stopped", t.Name)
	return err
}

func (r *Runner) skipDir(dir string) bool {
	if model.Within(r.DistDir(), dir) {
		return true
	}
	switch filepath.Base(dir) {
	case ".git", "node_modules":
		return true
	}
	rel, err := filepath.Rel(r.WorkDir, dir)
	return err == nil && r.ignore.Match(rel)
}
