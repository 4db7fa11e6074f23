// Package checksum computes SHA-256 digests over files and directory trees and
// reads and writes sha256sum-compatible manifests.
package checksum

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// ManifestFileName sits at the archive root and is excluded from its own hashing pass.
	ManifestFileName = "checksums.sha256"
	// Algorithm is the digest algorithm name written to the manifest header.
	Algorithm = "SHA-256"

	defaultWorkers = 4
)

var ErrMalformedManifest = errors.New("malformed manifest")

// Entry is one hashed file.
type Entry struct {
	Path   string
	Digest string
}

// Manifest is an ordered (by path) list of entries.
type Manifest struct {
	Algorithm   string
	GeneratedAt time.Time
	Entries     []Entry
}

// VerifyResult reports every problem found by VerifyTree.
type VerifyResult struct {
	Valid  bool
	Errors []string
}

// Engine hashes trees. The zero value is not usable; use New.
type Engine struct {
	workers int
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of files hashed in parallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{workers: defaultWorkers, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HashFile returns the hex SHA-256 digest of the file at p.
func HashFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader returns the hex SHA-256 digest of everything read from r.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashTree hashes every regular file below root except the manifest at the
// root and paths matching one of the exclude patterns. Patterns are matched
// with path.Match against the slash-separated path relative to root, so a
// packaged document that happens to share the manifest's name is still hashed.
// Entries are sorted by relative path.
func (e *Engine) HashTree(ctx context.Context, root string, exclude ...string) (*Manifest, error) {
	type file struct{ abs, rel string }
	var files []file
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, exclude) {
			return nil
		}
		files = append(files, file{abs: p, rel: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	entries := make([]Entry, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			digest, err := HashFile(f.abs)
			if err != nil {
				return fmt.Errorf("hash %s: %w", f.rel, err)
			}
			entries[i] = Entry{Path: f.rel, Digest: digest}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return &Manifest{Algorithm: Algorithm, GeneratedAt: e.now().UTC(), Entries: entries}, nil
}

func excluded(rel string, patterns []string) bool {
	if rel == ManifestFileName {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// FormatManifest renders the comment header and one "<digest>  <path>" line per entry.
func FormatManifest(m *Manifest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# algorithm: %s\n", m.Algorithm)
	fmt.Fprintf(&b, "# generated: %s\n", m.GeneratedAt.UTC().Format(time.RFC3339))
	for _, en := range m.Entries {
		fmt.Fprintf(&b, "%s  %s\n", en.Digest, en.Path)
	}
	return b.String()
}

// WriteManifest writes the formatted manifest to root/ManifestFileName.
func WriteManifest(root string, m *Manifest) (string, error) {
	p := filepath.Join(root, ManifestFileName)
	if err := os.WriteFile(p, []byte(FormatManifest(m)), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// ParseManifest reads a manifest produced by FormatManifest. Plain sha256sum
// output (no header, optional binary-mode asterisk) is accepted as well.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{Algorithm: Algorithm}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(text, "#")), ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "algorithm":
				m.Algorithm = value
			case "generated":
				t, err := time.Parse(time.RFC3339, value)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, line, err)
				}
				m.GeneratedAt = t
			}
			continue
		}
		digest, p, ok := strings.Cut(text, " ")
		if !ok || len(digest) != sha256.Size*2 {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedManifest, line)
		}
		if _, err := hex.DecodeString(digest); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, line, err)
		}
		p = strings.TrimPrefix(strings.TrimPrefix(p, " "), "*")
		if p == "" {
			return nil, fmt.Errorf("%w: line %d: empty path", ErrMalformedManifest, line)
		}
		m.Entries = append(m.Entries, Entry{Path: p, Digest: strings.ToLower(digest)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// VerifyTree recomputes every entry's digest under root. Mismatches and missing
// files are each reported; verification never stops at the first failure.
func VerifyTree(root string, m *Manifest) VerifyResult {
	var errs []string
	for _, en := range m.Entries {
		p := filepath.Join(root, filepath.FromSlash(en.Path))
		digest, err := HashFile(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			errs = append(errs, fmt.Sprintf("missing file: %s", en.Path))
		case err != nil:
			errs = append(errs, fmt.Sprintf("unreadable file: %s: %v", en.Path, err))
		case digest != en.Digest:
			errs = append(errs, fmt.Sprintf("checksum mismatch: %s", en.Path))
		}
	}
	return VerifyResult{Valid: len(errs) == 0, Errors: errs}
}
