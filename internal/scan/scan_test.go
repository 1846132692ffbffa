package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCategories_SkipsTopLevelFilesAndNonImages(t *testing.T) {
	fsys := memfs.New()

	touch(t, fsys, "/images/cats/a.JPG")
	touch(t, fsys, "/images/cats/notes.txt")
	touch(t, fsys, "/images/README.md")

	got, err := ScanCategories(fsys, "/images")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "cats", got[0].Name)
	assert.Equal(t, []string{"a.JPG"}, got[0].Images)
	assert.Equal(t, 1, got[0].Skipped)
}

func TestScanCategories_SortedAndNotRecursive(t *testing.T) {
	fsys := memfs.New()

	touch(t, fsys, "/images/dogs/b.png")
	touch(t, fsys, "/images/dogs/a.jpeg")
	touch(t, fsys, "/images/cats/x.jpg")
	// 分类目录下的子目录不递归，即使名字看起来像图片。
	touch(t, fsys, "/images/cats/nested.png/deep.jpg")

	got, err := ScanCategories(fsys, "/images")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "cats", got[0].Name)
	assert.Equal(t, []string{"x.jpg"}, got[0].Images)
	assert.Equal(t, 1, got[0].Skipped)

	assert.Equal(t, "dogs", got[1].Name)
	assert.ElementsMatch(t, []string{"a.jpeg", "b.png"}, got[1].Images)
}

func TestScanCategories_ImageNamedSubdirIsNotRecord(t *testing.T) {
	fsys := memfs.New()
	// 分类内名为 album.png 的目录不是图片文件：只计入 Skipped。
	require.NoError(t, fsys.MkdirAll("/images/cats/album.png", 0o755))
	touch(t, fsys, "/images/cats/a.png")

	got, err := ScanCategories(fsys, "/images")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a.png"}, got[0].Images)
	assert.Equal(t, 1, got[0].Skipped)
}

func TestScanCategories_EmptyBase(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/images", 0o755))

	got, err := ScanCategories(fsys, "/images")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanCategories_EmptyCategoryIsKept(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/images/empty", 0o755))

	got, err := ScanCategories(fsys, "/images")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Images)
}

func TestScanCategories_MissingBase(t *testing.T) {
	fsys := memfs.New()

	_, err := ScanCategories(fsys, "/nope")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "期望 not-exist 错误，实际：%T %v", err, err)
}

func TestScanCategories_BaseIsFile(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/images")

	_, err := ScanCategories(fsys, "/images")
	require.Error(t, err)
}

func TestScanCategories_OSFS_SymlinkedCategory(t *testing.T) {
	root := t.TempDir()
	fsys := osfs.Default

	base := filepath.Join(root, "images")
	touch(t, fsys, filepath.Join(root, "elsewhere", "b.png"))
	touch(t, fsys, filepath.Join(base, "cats", "a.jpg"))
	if err := os.Symlink(filepath.Join(root, "elsewhere"), filepath.Join(base, "linked")); err != nil {
		t.Skipf("当前平台不支持 symlink：%v", err)
	}
	// 悬空链接：不是目录，也不应报错。
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(base, "dangling")))

	got, err := ScanCategories(fsys, base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cats", got[0].Name)
	assert.Equal(t, "linked", got[1].Name)
	assert.Equal(t, []string{"b.png"}, got[1].Images)
}

func touch(t *testing.T, fsys FS, path string) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := util.WriteFile(fsys, path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
