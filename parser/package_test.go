package parser

import (
	"archive/zip"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evergreen-ci/pail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPackage(t *testing.T) {
	ctx := context.Background()

	pkg := MapPackage{
		"b.json": []byte("2"),
		"a.json": []byte("1"),
	}

	files, err := pkg.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.json", files[0].Name)
	assert.Equal(t, "b.json", files[1].Name)
	assert.NoError(t, pkg.Close())
}

func TestDirectoryPackage(t *testing.T) {
	ctx := context.Background()

	root, err := ioutil.TempDir("", "benchkeep-pkg-test-")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, os.RemoveAll(root))
	}()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "run.json"), []byte(`{"metric": 1}`), 0600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "nested", "more.json"), []byte(`{"metric": 2}`), 0600))

	pkg := &DirectoryPackage{Root: root}
	files, err := pkg.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := []string{files[0].Name, files[1].Name}
	assert.Contains(t, names, "run.json")
	assert.Contains(t, names, filepath.Join("nested", "more.json"))
	assert.NoError(t, pkg.Close())
}

func TestZipPackage(t *testing.T) {
	ctx := context.Background()

	writeArchive := func(t *testing.T, entries map[string]string) string {
		dir, err := ioutil.TempDir("", "benchkeep-zip-test-")
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, os.RemoveAll(dir)) })

		path := filepath.Join(dir, "results.zip")
		f, err := os.Create(path)
		require.NoError(t, err)

		w := zip.NewWriter(f)
		for name, content := range entries {
			entry, err := w.Create(name)
			require.NoError(t, err)
			_, err = entry.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		require.NoError(t, f.Close())

		return path
	}

	t.Run("ExtractsEntries", func(t *testing.T) {
		path := writeArchive(t, map[string]string{
			"a.json": `{"metric": 1}`,
			"b.json": `{"metric": 2}`,
		})

		pkg := NewZipPackage(path)
		files, err := pkg.Files(ctx)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "a.json", files[0].Name)
		assert.Equal(t, []byte(`{"metric": 1}`), files[0].Data)
		assert.NoError(t, pkg.Close())
	})
	t.Run("NestedEntriesWithSharedBaseName", func(t *testing.T) {
		path := writeArchive(t, map[string]string{
			"baseline/run.json":  `{"metric": 1}`,
			"candidate/run.json": `{"metric": 2}`,
		})

		pkg := NewZipPackage(path)
		files, err := pkg.Files(ctx)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "baseline/run.json", files[0].Name)
		assert.Equal(t, []byte(`{"metric": 1}`), files[0].Data)
		assert.Equal(t, "candidate/run.json", files[1].Name)
		assert.Equal(t, []byte(`{"metric": 2}`), files[1].Data)
		assert.NoError(t, pkg.Close())
	})
	t.Run("EntryEscapingExtractionDirectoryErrors", func(t *testing.T) {
		path := writeArchive(t, map[string]string{
			"../escape.json": `{}`,
		})

		pkg := NewZipPackage(path)
		_, err := pkg.Files(ctx)
		require.Error(t, err)
		assert.NoError(t, pkg.Close())
	})
	t.Run("CloseRemovesExtractionDirectory", func(t *testing.T) {
		path := writeArchive(t, map[string]string{"a.json": `{}`})

		pkg := NewZipPackage(path)
		_, err := pkg.Files(ctx)
		require.NoError(t, err)

		extracted := pkg.tempDir
		require.NotEmpty(t, extracted)
		_, err = os.Stat(extracted)
		require.NoError(t, err)

		require.NoError(t, pkg.Close())
		_, err = os.Stat(extracted)
		assert.True(t, os.IsNotExist(err))
	})
	t.Run("MissingArchiveErrors", func(t *testing.T) {
		pkg := NewZipPackage("/no/such/archive.zip")
		_, err := pkg.Files(ctx)
		assert.Error(t, err)
		assert.NoError(t, pkg.Close())
	})
	t.Run("CloseWithoutFilesIsNoop", func(t *testing.T) {
		pkg := NewZipPackage("whatever.zip")
		assert.NoError(t, pkg.Close())
	})
}

func TestBucketPackage(t *testing.T) {
	ctx := context.Background()

	root, err := ioutil.TempDir("", "benchkeep-bucket-test-")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, os.RemoveAll(root))
	}()

	bucket, err := pail.NewLocalBucket(pail.LocalOptions{Path: root})
	require.NoError(t, err)
	require.NoError(t, bucket.Put(ctx, "results/a.json", strings.NewReader(`{"sysbench_cpu_duration_sec": 10}`)))
	require.NoError(t, bucket.Put(ctx, "results/b.json", strings.NewReader(`{"sysbench_cpu_duration_sec": 20}`)))
	require.NoError(t, bucket.Put(ctx, "staging/other.json", strings.NewReader(`{}`)))

	t.Run("ListsOnlyUnderPrefix", func(t *testing.T) {
		pkg := &BucketPackage{Bucket: bucket, Prefix: "results"}
		files, err := pkg.Files(ctx)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "results/a.json", files[0].Name)
		assert.Equal(t, []byte(`{"sysbench_cpu_duration_sec": 10}`), files[0].Data)
		assert.Equal(t, "results/b.json", files[1].Name)
		assert.Equal(t, []byte(`{"sysbench_cpu_duration_sec": 20}`), files[1].Data)
		assert.NoError(t, pkg.Close())
	})
	t.Run("NoPrefixListsEverything", func(t *testing.T) {
		pkg := &BucketPackage{Bucket: bucket}
		files, err := pkg.Files(ctx)
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})
	t.Run("ParsesThroughPackageWalk", func(t *testing.T) {
		p := NewCPUMemParser()
		records, err := p.ParsePackage(ctx, &BucketPackage{Bucket: bucket, Prefix: "results"})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}
