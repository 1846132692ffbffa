package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/public", 0o755))

	require.NoError(t, WriteFileAtomicReplace(fsys, "/public", "data.json", []byte("hello")))

	b, err := util.ReadFile(fsys, "/public/data.json")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assertNoTemp(t, fsys, "/public", "data.json")
}

func TestWriteFileAtomicReplace_OverwritesExisting(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/public", 0o755))
	require.NoError(t, util.WriteFile(fsys, "/public/data.json", []byte("old old old"), 0o644))

	require.NoError(t, WriteFileAtomicReplace(fsys, "/public", "data.json", []byte("new")))

	b, err := util.ReadFile(fsys, "/public/data.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTempKeepOld(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/public", 0o755))
	require.NoError(t, util.WriteFile(fsys, "/public/data.json", []byte("old"), 0o644))

	old := renameFunc
	renameFunc = func(fsys billy.Basic, from, to string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(fsys, "/public", "data.json", []byte("new"))
	require.ErrorIs(t, err, os.ErrPermission)

	b, err := util.ReadFile(fsys, "/public/data.json")
	require.NoError(t, err)
	assert.Equal(t, "old", string(b), "失败时旧文件必须保持不变")
	assertNoTemp(t, fsys, "/public", "data.json")
}

func TestWriteFileAtomicReplace_TargetConflictDir(t *testing.T) {
	fsys := memfs.New()
	// 目标路径是目录：应返回 PathTypeConflictError，且不能覆盖目录。
	require.NoError(t, fsys.MkdirAll("/public/data.json", 0o755))

	err := WriteFileAtomicReplace(fsys, "/public", "data.json", []byte("hello"))
	require.Error(t, err)
	assert.True(t, IsPathTypeConflict(err), "期望 PathTypeConflictError，实际：%T %v", err, err)
}

func TestWriteFileAtomicReplace_MissingDir(t *testing.T) {
	fsys := memfs.New()

	err := WriteFileAtomicReplace(fsys, "/nope", "data.json", []byte("hello"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "期望 not-exist 错误，实际：%T %v", err, err)

	_, statErr := fsys.Stat("/nope")
	assert.True(t, os.IsNotExist(statErr), "不应隐式创建父目录")
}

func TestWriteFileAtomicReplace_OSFS_Perm(t *testing.T) {
	dir := t.TempDir()
	fsys := osfs.Default

	require.NoError(t, WriteFileAtomicReplace(fsys, dir, "data.json", []byte("[]\n")))

	fi, err := os.Stat(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	if fi.Mode().Perm()&0o044 == 0 {
		t.Fatalf("期望文件对 group/other 可读，实际 perm=%v", fi.Mode().Perm())
	}
	assertNoTemp(t, fsys, dir, "data.json")
}

func assertNoTemp(t *testing.T, fsys billy.Dir, dir, name string) {
	t.Helper()
	entries, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}
