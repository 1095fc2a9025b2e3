package model

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	Production  = "production"
	Development = "development"
)

var modeAliases = map[string]string{
	"prod": Production,
	"dev":  Development,
}

// Config is the build configuration: where the output goes, how the
// package is named, and which assets each target carries.
type Config struct {
	Dist           string                 `yaml:"dist"`
	Product        string                 `yaml:"product"`
	Manifest       string                 `yaml:"manifest"`
	DefaultVersion string                 `yaml:"default-version"`
	Debounce       time.Duration          `yaml:"debounce"`
	Ignore         []string               `yaml:"ignore"`
	Assets         []*AssetSpec           `yaml:"assets"`
	Targets        map[string]*TargetSpec `yaml:"targets"`
}

type AssetSpec struct {
	Src    string `yaml:"src"`
	Dst    string `yaml:"dst"`
	Dir    bool   `yaml:"dir"`
	Minify bool   `yaml:"minify"`
}

// TargetSpec lists the assets of one target. An empty list means the
// shared Config.Assets.
type TargetSpec struct {
	Assets []*AssetSpec `yaml:"assets"`
}

func DefaultConfig() *Config {
	return &Config{
		Dist:           "dist",
		Product:        "minimal_newtab",
		Manifest:       "manifest.json",
		DefaultVersion: "1.0.0",
		Debounce:       500 * time.Millisecond,
		Ignore:         []string{"**/.DS_Store", "**/*.swp", "**/*~"},
		Assets: []*AssetSpec{
			{Src: "manifest.json"},
			{Src: "favicons", Dir: true},
			{Src: "index.html", Minify: true},
			{Src: "main.js", Minify: true},
			{Src: "art.js", Minify: true},
			{Src: "defaultSettings.js", Minify: true},
			{Src: "utils.js", Minify: true},
			{Src: "style.css", Minify: true},
			{Src: "options.html", Minify: true},
			{Src: "options.js", Minify: true},
			{Src: "components", Dir: true, Minify: true},
			{Src: "widgets", Dir: true, Minify: true},
		},
		Targets: map[string]*TargetSpec{
			Production:  {},
			Development: {},
		},
	}
}

// ResolveMode maps a mode name, or one of its short aliases, to a target
// name. Unknown names are returned unchanged.
func ResolveMode(name string) string {
	if n, ok := modeAliases[strings.ToLower(name)]; ok {
		return n
	}
	return name
}

// TargetNames returns the configured target names in sorted order.
func (cfg *Config) TargetNames() []string {
	names := make([]string, 0, len(cfg.Targets))
	for n := range cfg.Targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BuildTargets builds the mode to Target map. Sources are resolved against
// baseDir. It fails on empty names, empty sources, destinations escaping
// the target directory and duplicate destinations within a target.
func (cfg *Config) BuildTargets(baseDir string) (map[string]*Target, error) {
	if cfg.Dist == "" {
		return nil, fmt.Errorf("dist directory is undefined")
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined")
	}

	ret := make(map[string]*Target, len(cfg.Targets))
	for _, name := range cfg.TargetNames() {
		spec := cfg.Targets[name]
		if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return nil, fmt.Errorf("invalid target name '%s'", name)
		}
		specs := cfg.Assets
		if spec != nil && len(spec.Assets) > 0 {
			specs = spec.Assets
		}

		t := &Target{Name: name}
		seen := map[string]string{}
		for _, s := range specs {
			if s == nil || s.Src == "" {
				return nil, fmt.Errorf("target %s: asset with empty source", name)
			}
			dst := s.Dst
			if dst == "" {
				dst = s.Src
			}
			dst = filepath.Clean(filepath.FromSlash(dst))
			if filepath.IsAbs(dst) || dst == "." || dst == ".." || strings.HasPrefix(dst, ".."+string(filepath.Separator)) {
				return nil, fmt.Errorf("target %s: destination '%s' escapes the target directory", name, s.Dst)
			}
			if prev, ok := seen[dst]; ok {
				return nil, fmt.Errorf("target %s: assets '%s' and '%s' both write to '%s'", name, prev, s.Src, filepath.ToSlash(dst))
			}
			seen[dst] = s.Src

			t.Assets = append(t.Assets, Asset{
				Name:   s.Src,
				Src:    normalizePath(baseDir, filepath.FromSlash(s.Src)),
				Dst:    dst,
				IsDir:  s.Dir,
				Minify: s.Minify,
			})
		}
		ret[name] = t
	}
	return ret, nil
}
