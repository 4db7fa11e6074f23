package packager

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditexport/internal/model"
)

func newPackager() *Packager { return New(nil) }

func TestCreateSkeleton(t *testing.T) {
	dir := t.TempDir()
	p := newPackager()

	require.NoError(t, p.CreateSkeleton(dir, model.CategoryInvoices, model.CategoryReceipts))

	for _, d := range []string{"data", "documents", "documents/invoices", "documents/receipts"} {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(d)))
		require.NoError(t, err, d)
		assert.True(t, info.IsDir(), d)
	}
	_, err := os.Stat(filepath.Join(dir, "documents", "contracts"))
	assert.True(t, os.IsNotExist(err))

	// Re-running over an existing tree is harmless.
	require.NoError(t, p.CreateSkeleton(dir, model.CategoryInvoices))
}

func TestCreateSkeleton_InvalidCategory(t *testing.T) {
	err := newPackager().CreateSkeleton(t.TempDir(), model.DocumentCategory("../etc"))
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"invoice.pdf", "invoice.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\tmp\scan 01.png`, "scan_01.png"},
		{"Rechnung März.pdf", "Rechnung_M_rz.pdf"},
		{"..", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestCopyDocument(t *testing.T) {
	dir := t.TempDir()
	p := newPackager()

	rel, err := p.CopyDocument(strings.NewReader("first"), dir, model.CategoryInvoices, "../r-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/invoices/r-1.pdf", rel)

	rel2, err := p.CopyDocument(strings.NewReader("second"), dir, model.CategoryInvoices, "r-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/invoices/r-1_1.pdf", rel2)

	got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel2)))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestCopyDocument_Errors(t *testing.T) {
	p := newPackager()

	_, err := p.CopyDocument(strings.NewReader("x"), t.TempDir(), "unknown", "a.pdf")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = p.CopyDocument(failingReader{}, t.TempDir(), model.CategoryReceipts, "a.pdf")
	assert.ErrorContains(t, err, "boom")
}

func TestValidateStructure(t *testing.T) {
	dir := t.TempDir()
	p := newPackager()

	errs := p.ValidateStructure(dir)
	assert.Len(t, errs, 4)

	require.NoError(t, p.CreateSkeleton(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.xml"), []byte("<DataSet/>"), 0o644))
	errs = p.ValidateStructure(dir)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "gdpdu-01-08-2002.dtd")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gdpdu-01-08-2002.dtd"), []byte("<!-- -->"), 0o644))
	assert.Empty(t, p.ValidateStructure(dir))
}

func TestValidateStructure_WrongKind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "documents"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "index.xml"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gdpdu-01-08-2002.dtd"), nil, 0o644))

	errs := newPackager().ValidateStructure(dir)
	assert.ElementsMatch(t, []string{"data must be a directory", "index.xml must be a regular file"}, errs)
}

func TestCompress(t *testing.T) {
	dir := t.TempDir()
	p := newPackager()
	require.NoError(t, p.CreateSkeleton(dir, model.CategoryInvoices, model.CategoryContracts))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.xml"), []byte("<DataSet/>"), 0o644))
	payload := bytes.Repeat([]byte("account;balance\r\n"), 500)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "accounts.csv"), payload, 0o644))
	_, err := p.CopyDocument(strings.NewReader("%PDF"), dir, model.CategoryInvoices, "r.pdf")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "exports", "archive.zip")
	size, err := p.Compress(dir, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"data/",
		"data/accounts.csv",
		"documents/",
		"documents/contracts/",
		"documents/invoices/",
		"documents/invoices/r.pdf",
		"index.xml",
	}, names)

	for _, f := range zr.File {
		if f.Name != "data/accounts.csv" {
			continue
		}
		assert.Equal(t, zip.Deflate, f.Method)
		assert.Less(t, f.CompressedSize64, f.UncompressedSize64)
		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestCompress_MissingSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.zip")
	_, err := newPackager().Compress(filepath.Join(t.TempDir(), "nope"), out)
	assert.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestCleanupDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	p := newPackager()
	require.NoError(t, p.CreateSkeleton(dir, model.CategoryReceipts))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "a.csv"), []byte("x"), 0o644))

	assert.Equal(t, 0, p.CleanupDirectory(dir))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Missing directories are not failures.
	assert.Equal(t, 0, p.CleanupDirectory(dir))
}

func TestFileCount(t *testing.T) {
	dir := t.TempDir()
	p := newPackager()
	require.NoError(t, p.CreateSkeleton(dir, model.CategoryReceipts))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.xml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "a.csv"), nil, 0o644))

	n, err := p.FileCount(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
