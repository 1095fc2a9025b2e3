package pack

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	utilfs "github.com/adnsv/go-utils/fs"
	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// Zip writes a deflate archive of every regular file below srcDir to dstFN.
// Entry names are relative to srcDir. The archive is assembled in a
// temporary file next to dstFN and renamed into place, so a failure never
// leaves a partial archive under the final name.
func Zip(srcDir, dstFN string) (err error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path '%s' is not a directory", srcDir)
	}

	files, err := collectFiles(srcDir)
	if err != nil {
		return err
	}

	if utilfs.FileExists(dstFN) {
		if err := os.Remove(dstFN); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstFN), "."+filepath.Base(dstFN)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, rel := range files {
		if err = addFile(zw, srcDir, rel); err != nil {
			return err
		}
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dstFN); err != nil {
		return err
	}
	log.Debugf("archived %d files from %s", len(files), srcDir)
	return nil
}

// collectFiles lists regular files below dir as sorted slash paths.
func collectFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(fn string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, fn)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

func addFile(zw *zip.Writer, dir, rel string) error {
	fn := filepath.Join(dir, filepath.FromSlash(rel))
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("archiving %s: %w", fn, err)
	}
	return nil
}
