package archive

import (
	"archive/zip"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

type zipEntry struct {
	name    string
	content string
	mode    fs.FileMode
}

func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.mode != 0 {
			hdr.SetMode(e.mode)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
}

func TestManager_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	files := map[string]string{
		"trainer.exe":          "MZ fake trainer",
		"readme.txt":           "press F1",
		"data/config/keys.ini": "[keys]\nF1=god\n",
		"data/empty.bin":       "",
	}

	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, files)

	am := NewManager()
	ctx := context.Background()
	archivePath := filepath.Join(tempDir, "out", "trainer.zip")
	require.NoError(t, am.Create(ctx, sourceDir, archivePath))
	assert.True(t, IsZip(archivePath))

	extractDir := filepath.Join(tempDir, "extracted")
	require.NoError(t, am.ExtractAll(ctx, archivePath, extractDir))
	assert.Equal(t, files, readTree(t, extractDir))

	// Re-compressing the extracted tree yields the same entry set.
	again := filepath.Join(tempDir, "again.zip")
	require.NoError(t, am.Create(ctx, extractDir, again))
	secondDir := filepath.Join(tempDir, "second")
	require.NoError(t, am.ExtractAll(ctx, again, secondDir))
	assert.Equal(t, files, readTree(t, secondDir))
}

func TestManager_Create_Errors(t *testing.T) {
	tempDir := t.TempDir()
	am := NewManager()
	ctx := context.Background()

	err := am.Create(ctx, filepath.Join(tempDir, "missing"), filepath.Join(tempDir, "out.zip"))
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))

	source := filepath.Join(tempDir, "source")
	writeTree(t, source, map[string]string{"a.txt": "a"})
	blocker := filepath.Join(tempDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err = am.Create(ctx, source, filepath.Join(blocker, "out.zip"))
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))
}

func TestManager_ExtractAll_DirectoryEntriesAndNesting(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "payload.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "a/"},
		{name: "a/b.txt", content: "hello"},
		{name: "deep/nested/dir/"},
		{name: "no/parent/entry.txt", content: "auto parents"},
	})

	dest := filepath.Join(tempDir, "dest")
	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, dest))

	assert.DirExists(t, filepath.Join(dest, "a"))
	assert.DirExists(t, filepath.Join(dest, "deep", "nested", "dir"))
	data, err := os.ReadFile(filepath.Join(dest, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, filepath.Join(dest, "no", "parent", "entry.txt"))
}

func TestManager_ExtractAll_SkipsTraversal(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "evil.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "../escape.txt", content: "nope"},
		{name: "nested/../../escape2.txt", content: "nope"},
		{name: "/abs.txt", content: "nope"},
		{name: "ok.txt", content: "fine"},
	})

	dest := filepath.Join(tempDir, "dest")
	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, dest))

	assert.Equal(t, map[string]string{"ok.txt": "fine"}, readTree(t, dest))
	assert.NoFileExists(t, filepath.Join(tempDir, "escape.txt"))
	assert.NoFileExists(t, filepath.Join(tempDir, "escape2.txt"))
}

func TestManager_ExtractAll_ReappliesUnixMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions are not applied on windows")
	}
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "modes.zip")
	writeZip(t, archivePath, []zipEntry{
		{name: "run.sh", content: "#!/bin/sh\n", mode: 0o755},
		{name: "secret.txt", content: "s", mode: 0o600},
		{name: "plain.txt", content: "p"},
	})

	dest := filepath.Join(tempDir, "dest")
	require.NoError(t, NewManager().ExtractAll(context.Background(), archivePath, dest))

	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(dest, "secret.txt"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())

	assert.FileExists(t, filepath.Join(dest, "plain.txt"))
}

func TestManager_ExtractAll_FormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "truncated zip", content: append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("garbage that is not a zip")...)},
		{name: "plain text", content: []byte("just some text")},
		{name: "executable", content: []byte("MZ\x90\x00 not an archive")},
		{name: "empty", content: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			path := filepath.Join(tempDir, "payload.bin")
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))

			err := NewManager().ExtractAll(context.Background(), path, filepath.Join(tempDir, "dest"))
			require.Error(t, err)
			assert.Equal(t, errors.Archive, errors.KindOf(err))
			assert.ErrorIs(t, err, errors.ErrArchiveFormat)
		})
	}
}

func TestManager_ExtractAll_MissingFile(t *testing.T) {
	err := NewManager().ExtractAll(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))
}

func TestManager_ExtractAll_WriteFailureIsIO(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "payload.zip")
	writeZip(t, archivePath, []zipEntry{{name: "blocked/file.txt", content: "x"}})

	dest := filepath.Join(tempDir, "dest")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	// A regular file where a directory is needed makes the write fail.
	require.NoError(t, os.WriteFile(filepath.Join(dest, "blocked"), []byte("file"), 0o644))

	err := NewManager().ExtractAll(context.Background(), archivePath, dest)
	require.Error(t, err)
	assert.Equal(t, errors.IO, errors.KindOf(err))
}

func TestResolveEntryPath(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest")
	tests := []struct {
		name string
		ok   bool
	}{
		{"file.txt", true},
		{"dir/file.txt", true},
		{"dir/", true},
		{"dir/../file.txt", true},
		{"../file.txt", false},
		{"..", false},
		{".", false},
		{"", false},
		{"/etc/passwd", false},
		{`\windows\system32`, false},
		{`..\evil.txt`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := resolveEntryPath(dest, tt.name)
			assert.Equal(t, tt.ok, ok)
			if ok {
				rel, err := filepath.Rel(dest, target)
				require.NoError(t, err)
				assert.NotContains(t, rel, "..")
			}
		})
	}
}
