package model

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adnsv/extpack/minify"
	utilfs "github.com/adnsv/go-utils/fs"
)

// Materialize writes the asset into dstRoot. Missing sources yield
// ErrMissingSource, rejected content a *MinifyError; nothing panics out of
// here.
func (a *Asset) Materialize(dstRoot string, m minify.Minifier, ignore *Matcher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("materializing %s: %v", a.Name, r)
		}
	}()

	dst := filepath.Join(dstRoot, a.Dst)

	info, err := os.Stat(a.Src)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", a.Name, ErrMissingSource)
	} else if err != nil {
		return err
	}

	if !a.IsDir {
		if info.IsDir() {
			return fmt.Errorf("path '%s' points to a directory instead of a file", a.Src)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if a.Minify && minify.KindOf(a.Src) != minify.KindOpaque {
			return minifyFile(a.Src, dst, m)
		}
		return copyFile(a.Src, dst, info)
	}

	if !info.IsDir() {
		return fmt.Errorf("path '%s' is not a directory", a.Src)
	}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
	}
	return copyTree(a.Src, dst, a.Dst, a.Minify, m, ignore, map[string]bool{})
}

// copyTree mirrors src into dst. With minifyCode set, stylesheets and scripts
// are minified and everything else (markup included) is copied verbatim.
// Symlinked directories are followed; visited holds the resolved
// directories on the current path and breaks link cycles.
func copyTree(src, dst, relRoot string, minifyCode bool, m minify.Minifier, ignore *Matcher, visited map[string]bool) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	if visited[root] {
		return fmt.Errorf("symlink cycle at %s", src)
	}
	visited[root] = true
	defer delete(visited, root)

	return filepath.WalkDir(root, func(fn string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, fn)
		if err != nil {
			return err
		}
		if rel != "." && ignore.Match(filepath.Join(relRoot, rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		out := filepath.Join(dst, rel)

		info, err := os.Stat(fn)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if d.Type()&fs.ModeSymlink != 0 {
				return copyTree(fn, out, filepath.Join(relRoot, rel), minifyCode, m, ignore, visited)
			}
			return os.MkdirAll(out, info.Mode().Perm()|0700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		if minifyCode {
			switch minify.KindOf(fn) {
			case minify.KindStylesheet, minify.KindScript:
				return minifyFile(fn, out, m)
			}
		}
		return copyFile(fn, out, info)
	})
}

func minifyFile(src, dst string, m minify.Minifier) error {
	buf, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out, err := m.Minify(minify.KindOf(src), string(buf))
	if err != nil {
		return &MinifyError{Path: src, Err: err}
	}
	if err := utilfs.WriteFileIfChanged(dst, []byte(out)); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// copyFile copies content, permission bits and modification time.
func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if utilfs.FileExists(dst) {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
