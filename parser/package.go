package parser

import (
	"archive/zip"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evergreen-ci/pail"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// File is one named byte stream within a result package.
type File struct {
	Name string
	Data []byte
}

// Package is an abstract bundle of named byte streams: a directory, an
// archive, a blob-store prefix, or an in-memory map. Close releases any
// scoped resources (temporary extraction storage) and must be called on
// every exit path.
type Package interface {
	Files(ctx context.Context) ([]File, error)
	Close() error
}

// MapPackage is an in-memory package, primarily for tests and API callers
// that already hold the bytes.
type MapPackage map[string][]byte

// Files implements Package, returning entries sorted by name.
func (p MapPackage) Files(_ context.Context) ([]File, error) {
	out := make([]File, 0, len(p))
	for name, data := range p {
		out = append(out, File{Name: name, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements Package and is a no-op.
func (p MapPackage) Close() error { return nil }

// DirectoryPackage exposes every regular file under a directory tree as a
// package.
type DirectoryPackage struct {
	Root string
}

// Files implements Package, walking the tree in lexical order.
func (p *DirectoryPackage) Files(_ context.Context) ([]File, error) {
	out := []File{}

	err := filepath.Walk(p.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		data, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "reading '%s'", path)
		}

		rel, err := filepath.Rel(p.Root, path)
		if err != nil {
			rel = info.Name()
		}

		out = append(out, File{Name: rel, Data: data})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking package directory '%s'", p.Root)
	}

	return out, nil
}

// Close implements Package and is a no-op; the caller owns the directory.
func (p *DirectoryPackage) Close() error { return nil }

// ZipPackage extracts a zip archive into scoped temporary storage and
// exposes the extracted files. Close removes the temporary directory; it is
// also removed if extraction itself fails partway.
type ZipPackage struct {
	archivePath string
	tempDir     string
}

// NewZipPackage opens a zip archive on disk as a package.
func NewZipPackage(archivePath string) *ZipPackage {
	return &ZipPackage{archivePath: archivePath}
}

// Files implements Package, extracting the archive on first call.
func (p *ZipPackage) Files(ctx context.Context) ([]File, error) {
	reader, err := zip.OpenReader(p.archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening archive '%s'", p.archivePath)
	}
	defer reader.Close()

	if p.tempDir == "" {
		p.tempDir, err = ioutil.TempDir("", "benchkeep-extract-")
		if err != nil {
			return nil, errors.Wrap(err, "creating extraction directory")
		}
	}

	out := []File{}
	for _, zf := range reader.File {
		if err := ctx.Err(); err != nil {
			_ = p.Close()
			return nil, errors.WithStack(err)
		}
		if zf.FileInfo().IsDir() {
			continue
		}

		dst := filepath.Join(p.tempDir, filepath.FromSlash(zf.Name))
		if !strings.HasPrefix(dst, p.tempDir+string(os.PathSeparator)) {
			_ = p.Close()
			return nil, errors.Errorf("archive entry '%s' escapes the extraction directory", zf.Name)
		}

		if err := extractZipEntry(zf, dst); err != nil {
			_ = p.Close()
			return nil, errors.Wrapf(err, "extracting '%s'", zf.Name)
		}

		data, err := ioutil.ReadFile(dst)
		if err != nil {
			_ = p.Close()
			return nil, errors.Wrapf(err, "reading extracted file '%s'", dst)
		}

		out = append(out, File{Name: zf.Name, Data: data})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close removes the temporary extraction directory.
func (p *ZipPackage) Close() error {
	if p.tempDir == "" {
		return nil
	}

	err := os.RemoveAll(p.tempDir)
	grip.DebugWhen(err == nil, message.Fields{
		"message": "removed extraction directory",
		"path":    p.tempDir,
		"archive": p.archivePath,
	})
	p.tempDir = ""

	return errors.Wrap(err, "removing extraction directory")
}

// extractZipEntry streams one archive entry to dst, preserving the entry's
// relative path under the extraction directory.
func extractZipEntry(zf *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return errors.Wrap(err, "creating entry directory")
	}

	rc, err := zf.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer rc.Close()

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err = io.Copy(f, rc); err != nil {
		_ = f.Close()
		return errors.WithStack(err)
	}

	return errors.WithStack(f.Close())
}

// BucketPackage exposes the objects under a prefix of a pail bucket as a
// package, so results staged in blob storage can be ingested without an
// intermediate download step.
type BucketPackage struct {
	Bucket pail.Bucket
	Prefix string
}

// Files implements Package, listing and fetching every object under the
// prefix.
func (p *BucketPackage) Files(ctx context.Context) ([]File, error) {
	iter, err := p.Bucket.List(ctx, p.Prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "listing bucket contents under '%s'", p.Prefix)
	}

	out := []File{}
	for iter.Next(ctx) {
		item := iter.Item()

		r, err := item.Get(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "getting bucket object '%s'", item.Name())
		}

		data, err := ioutil.ReadAll(r)
		closeErr := r.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading bucket object '%s'", item.Name())
		}
		grip.Warning(message.WrapError(closeErr, message.Fields{
			"message": "could not close bucket reader",
			"path":    item.Name(),
		}))

		out = append(out, File{Name: item.Name(), Data: data})
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating bucket contents")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements Package and is a no-op; the caller owns the bucket.
func (p *BucketPackage) Close() error { return nil }
