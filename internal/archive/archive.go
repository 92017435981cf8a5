// Package archive inspects upload sources and packs directories into zip
// archives so a folder travels to the receiver as a single request.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// Info describes an upload source. FileCount is only set for directories
// and counts regular files under the root; it exists for progress display,
// not transfer semantics.
type Info struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	IsDir     bool   `json:"isDir"`
	FileCount int    `json:"fileCount,omitempty"`
}

// Inspect stats path. For directories, Size is the sum of regular file
// sizes beneath it.
func Inspect(path string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	info := &Info{Name: fi.Name(), Size: fi.Size(), IsDir: fi.IsDir()}
	if !fi.IsDir() {
		return info, nil
	}

	info.Size = 0
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			info.FileCount++
			info.Size += fi.Size()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// PackDir zips dirPath into a temporary file and returns its path. Entry
// names are relative to dirPath with forward slashes, so the receiver can
// extract into its target directory directly. The caller removes the file.
func PackDir(dirPath string) (string, error) {
	tmp, err := os.CreateTemp("", "shipper-*.zip")
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(tmp)
	err = filepath.Walk(dirPath, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(dirPath, path)
		if err != nil {
			return err
		}

		hdr, err := zip.FileInfoHeader(fi)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(relPath)
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})

	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
