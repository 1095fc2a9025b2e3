package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adnsv/extpack/minify"
	"github.com/adnsv/extpack/model"
	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

var extension = map[string]string{
	"manifest.json":           "{\n  \"manifest_version\": 3,\n  \"version\": \"3.2.1\"\n}\n",
	"favicons/icon16.png":     "PNG16",
	"favicons/icon128.png":    "PNG128",
	"index.html":              "<html>\n  <body>\n    <div id=\"clock\">   </div>\n  </body>\n</html>\n",
	"main.js":                 "function main() {\n  return 1;\n}\nmain();\n",
	"style.css":               "body {\n  margin: 0;\n}\n",
	"components/js/clock.js":  "function clock() {\n  return new Date();\n}\n",
	"components-extra/x.js":   "var x = 1;\n",
	"widgets/todo.js":         "var todos = [];\n",
	"widgets/calendar.html":   "<p>  calendar  </p>\n",
	"widgets/assets/cal.png":  "PNGCAL",
	"components/css/main.css": ".clock {\n  color: red;\n}\n",
}

func setup(t *testing.T) (string, *model.Config) {
	t.Helper()
	dir := t.TempDir()
	for fn, content := range extension {
		p := filepath.Join(dir, filepath.FromSlash(fn))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	cfg := model.DefaultConfig()
	cfg.Assets = []*model.AssetSpec{
		{Src: "manifest.json"},
		{Src: "favicons", Dir: true},
		{Src: "index.html", Minify: true},
		{Src: "main.js", Minify: true},
		{Src: "style.css", Minify: true},
		{Src: "components", Dir: true, Minify: true},
		{Src: "widgets", Dir: true, Minify: true},
	}
	cfg.Debounce = 50 * time.Millisecond
	return dir, cfg
}

func newRunner(t *testing.T, dir string, cfg *model.Config) *Runner {
	t.Helper()
	r, err := New(cfg, dir, minify.New())
	require.NoError(t, err)
	return r
}

func readFile(t *testing.T, fn string) string {
	t.Helper()
	buf, err := os.ReadFile(fn)
	require.NoError(t, err)
	return string(buf)
}

func TestRunProduction(t *testing.T) {
	dir, cfg := setup(t)
	r := newRunner(t, dir, cfg)

	require.NoError(t, r.Run(context.Background(), Options{Mode: "production"}))
	assert.Equal(t, Done, r.State())

	out := filepath.Join(dir, "dist", "production")
	assert.Equal(t, extension["manifest.json"], readFile(t, filepath.Join(out, "manifest.json")))
	assert.Equal(t, "PNG128", readFile(t, filepath.Join(out, "favicons", "icon128.png")))
	assert.Equal(t, "PNGCAL", readFile(t, filepath.Join(out, "widgets", "assets", "cal.png")))
	assert.Equal(t, extension["widgets/calendar.html"], readFile(t, filepath.Join(out, "widgets", "calendar.html")))

	index := readFile(t, filepath.Join(out, "index.html"))
	assert.NotEmpty(t, index)
	assert.NotContains(t, index, "\n    ")
	assert.Less(t, len(readFile(t, filepath.Join(out, "main.js"))), len(extension["main.js"]))
	assert.Less(t, len(readFile(t, filepath.Join(out, "components", "js", "clock.js"))), len(extension["components/js/clock.js"]))

	_, err := os.Stat(filepath.Join(out, "components-extra"))
	assert.True(t, os.IsNotExist(err))

	matches, err := filepath.Glob(filepath.Join(dir, "dist", "*.zip"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRunProductionZip(t *testing.T) {
	dir, cfg := setup(t)
	r := newRunner(t, dir, cfg)

	require.NoError(t, r.Run(context.Background(), Options{Mode: "prod", Zip: true}))

	fn := filepath.Join(dir, "dist", "minimal_newtab_v3.2.1.zip")
	zr, err := zip.OpenReader(fn)
	require.NoError(t, err)
	defer zr.Close()

	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "manifest.json")
	assert.Contains(t, names, "favicons/icon16.png")
	assert.Contains(t, names, "components/js/clock.js")
	for _, n := range names {
		assert.False(t, strings.HasPrefix(n, "production/"), n)
	}
}

func TestRunZipDefaultVersion(t *testing.T) {
	dir, cfg := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("not json"), 0o644))
	r := newRunner(t, dir, cfg)

	require.NoError(t, r.Run(context.Background(), Options{Mode: "production", Zip: true}))
	assert.FileExists(t, filepath.Join(dir, "dist", "minimal_newtab_v1.0.0.zip"))
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		errMsg string
	}{
		{"unknown mode", Options{Mode: "staging"}, "unknown mode: staging"},
		{"zip in development", Options{Mode: "development", Zip: true}, "only available for production"},
		{"zip in development once", Options{Mode: "dev", Once: true, Zip: true}, "only available for production"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, cfg := setup(t)
			r := newRunner(t, dir, cfg)

			err := r.Run(context.Background(), tt.opts)
			require.Error(t, err)
			var uerr *UsageError
			require.True(t, errors.As(err, &uerr))
			assert.Contains(t, err.Error(), tt.errMsg)

			_, err = os.Stat(filepath.Join(dir, "dist"))
			assert.True(t, os.IsNotExist(err), "nothing is built on usage errors")
		})
	}
}

func TestPackageWithoutBuild(t *testing.T) {
	dir, cfg := setup(t)
	r := newRunner(t, dir, cfg)

	_, err := r.Package(r.Targets[model.Production])
	var uerr *UsageError
	require.True(t, errors.As(err, &uerr))
	assert.Contains(t, err.Error(), "run build first")
}

func TestNewRejectsDuplicateDestinations(t *testing.T) {
	dir, cfg := setup(t)
	cfg.Assets = append(cfg.Assets, &model.AssetSpec{Src: "other.js", Dst: "main.js"})

	_, err := New(cfg, dir, minify.New())
	var uerr *UsageError
	require.True(t, errors.As(err, &uerr))
}

func TestRunDevelopmentOnce(t *testing.T) {
	dir, cfg := setup(t)
	r := newRunner(t, dir, cfg)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), Options{Mode: "dev", Once: true}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("one-shot development build did not return")
	}
	assert.FileExists(t, filepath.Join(dir, "dist", "development", "main.js"))
}

func TestRunWatch(t *testing.T) {
	dir, cfg := setup(t)
	r := newRunner(t, dir, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, Options{Mode: "development"}) }()

	require.Eventually(t, func() bool { return r.State() == Watching }, 10*time.Second, 10*time.Millisecond)
	out := filepath.Join(dir, "dist", "development", "components", "js", "clock.js")
	assert.NotContains(t, readFile(t, out), "rebuilt")

	// leave the debounce window opened by the baseline build
	time.Sleep(2 * cfg.Debounce)
	// save the way editors do: write aside, then rename over the source
	src := filepath.Join(dir, "components", "js", "clock.js")
	tmp := filepath.Join(dir, "clock.js.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("function clock() {\n  return \"rebuilt\";\n}\n"), 0o644))
	require.NoError(t, os.Rename(tmp, src))

	require.Eventually(t, func() bool {
		buf, err := os.ReadFile(out)
		return err == nil && strings.Contains(string(buf), "rebuilt")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch session did not stop")
	}
	assert.Equal(t, Done, r.State())
}

func TestSkipDir(t *testing.T) {
	dir, cfg := setup(t)
	cfg.Ignore = append(cfg.Ignore, "vendor")
	r := newRunner(t, dir, cfg)

	assert.True(t, r.skipDir(filepath.Join(r.WorkDir, "dist")))
	assert.True(t, r.skipDir(filepath.Join(r.WorkDir, "dist", "development")))
	assert.True(t, r.skipDir(filepath.Join(r.WorkDir, ".git")))
	assert.True(t, r.skipDir(filepath.Join(r.WorkDir, "vendor")))
	assert.False(t, r.skipDir(filepath.Join(r.WorkDir, "components")))
	assert.False(t, r.skipDir(filepath.Join(r.WorkDir, "distribution")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "watching", Watching.String())
}

func TestDistDir(t *testing.T) {
	dir, cfg := setup(t)
	cfg.Dist = "build/out"
	r := newRunner(t, dir, cfg)

	assert.Equal(t, filepath.Join(r.WorkDir, "build", "out"), r.DistDir())
	assert.True(t, r.skipDir(filepath.Join(r.WorkDir, "build", "out", "production")))
	assert.False(t, r.skipDir(filepath.Join(r.WorkDir, "build")))

	require.NoError(t, r.Run(context.Background(), Options{Mode: "production", Zip: true}))
	assert.FileExists(t, filepath.Join(r.DistDir(), "minimal_newtab_v3.2.1.zip"))
}
