package egp

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Extract unpacks an .egp container (a plain zip) into dir.
func Extract(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrapf(err, "could not open archive: %s", archive)
	}
	defer func() {
		_ = r.Close()
	}()

	for _, f := range r.File {
		if err := extractMember(f, dir); err != nil {
			return err
		}
	}

	return nil
}

func extractMember(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return errors.Errorf("archive member escapes extraction dir: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "could not read archive member: %s", f.Name)
	}
	defer func() {
		_ = rc.Close()
	}()

	w, err := os.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, rc); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "could not extract archive member: %s", f.Name)
	}

	return w.Close()
}

// Compress packs the contents of dir into a new zip archive at path.
// Member names are dir-relative with forward slashes, the layout the
// authoring tool expects when it reopens the project.
func Compress(dir, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()

		_, err = io.Copy(w, f)

		return err
	})
	if err != nil {
		_ = zw.Close()
		_ = out.Close()

		return errors.Wrapf(err, "could not pack archive: %s", path)
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
