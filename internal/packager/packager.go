// Package packager lays out, validates and compresses the archive tree.
package packager

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"

	"auditexport/internal/index"
	"auditexport/internal/model"
	"auditexport/internal/schema"
)

// DocumentsDir is the archive folder holding packaged source documents.
const DocumentsDir = "documents"

var ErrInvalidCategory = errors.New("invalid document category")

// Packager performs the file operations of an export. It is safe for concurrent
// use as long as callers work in distinct directories.
type Packager struct {
	logger *slog.Logger
}

// New returns a Packager logging through logger (slog.Default when nil).
func New(logger *slog.Logger) *Packager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{logger: logger}
}

// CreateSkeleton creates the mandatory layout below dir plus one folder per category.
func (p *Packager) CreateSkeleton(dir string, categories ...model.DocumentCategory) error {
	dirs := []string{schema.DataDir, DocumentsDir}
	for _, c := range categories {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
		dirs = append(dirs, filepath.Join(DocumentsDir, string(c)))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces name to a portable base name.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}

// CopyDocument writes r to dir/documents/<category>/<filename> and returns the
// slash-separated path relative to dir. Existing names get a numeric suffix.
func (p *Packager) CopyDocument(r io.Reader, dir string, category model.DocumentCategory, filename string) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	folder := filepath.Join(dir, DocumentsDir, string(category))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}

	name := SanitizeFilename(filename)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	var f *os.File
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + "_" + strconv.Itoa(i) + ext
		}
		var err error
		f, err = os.OpenFile(filepath.Join(folder, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		name = candidate
		break
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("copy %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return DocumentsDir + "/" + string(category) + "/" + name, nil
}

// ValidateStructure reports every mandatory top-level entry missing from dir.
// An empty result means the tree is complete.
func (p *Packager) ValidateStructure(dir string) []string {
	required := []struct {
		name  string
		isDir bool
	}{
		{schema.DataDir, true},
		{DocumentsDir, true},
		{index.FileName, false},
		{index.DTDFileName, false},
	}
	var errs []string
	for _, r := range required {
		info, err := os.Stat(filepath.Join(dir, r.name))
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("missing required entry: %s", r.name))
		case r.isDir && !info.IsDir():
			errs = append(errs, fmt.Sprintf("%s must be a directory", r.name))
		case !r.isDir && !info.Mode().IsRegular():
			errs = append(errs, fmt.Sprintf("%s must be a regular file", r.name))
		}
	}
	return errs
}

// Compress zips the tree below dir into outputPath and returns the archive size.
// Paths inside the archive are slash-separated and relative to dir; directories get
// their own entries so empty category folders survive. The archive is written to a
// temporary name and renamed once complete.
func (p *Packager) Compress(dir, outputPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, err
	}
	tmp := outputPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if d.IsDir() || d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := addEntry(zw, dir, path); err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return 0, fmt.Errorf("promote archive: %w", err)
	}
	ok = true

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func addEntry(zw *zip.Writer, root, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
		hdr.Method = zip.Store
		_, err := zw.CreateHeader(hdr)
		return err
	}
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", hdr.Name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("add %s: %w", hdr.Name, err)
	}
	return nil
}

// CleanupDirectory removes dir recursively. Individual removal failures are
// logged and counted rather than aborting; the count is returned.
func (p *Packager) CleanupDirectory(dir string) int {
	var paths []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			p.logger.Warn("cleanup walk failed", "component", "packager", "event", "cleanup_walk_error", "path", path, "error", err)
			return nil
		}
		paths = append(paths, path)
		return nil
	})

	// Deepest paths first so directories are empty when removed.
	failed := 0
	for i := len(paths) - 1; i >= 0; i-- {
		if err := os.Remove(paths[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed++
			p.logger.Warn("cleanup remove failed", "component", "packager", "event", "cleanup_remove_error", "path", paths[i], "error", err)
		}
	}
	return failed
}

// FileCount returns the number of regular files below dir.
func (p *Packager) FileCount(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}
