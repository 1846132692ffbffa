package scan

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/John-Robertt/imgmanifest/internal/domain"
)

// FS 是扫描需要的最小文件系统能力（只读：Stat/ReadDir/Join）。
type FS interface {
	billy.Basic
	billy.Dir
}

// ScanCategories 列出 base 下的分类子目录，以及每个分类中的图片文件。
//
// 规则（硬约束）：
// - 只看两层：base 的直接子目录是分类；分类目录的直接子文件是候选图片（不递归）
// - base 下的非目录条目静默跳过
// - 分类内的子目录与非图片文件静默跳过（只计入 Skipped）
// - 符号链接按目标类型处理（与 stat 语义一致）
//
// 注意：扫描阶段只做 list/stat，不读文件内容。
func ScanCategories(fsys FS, base string) ([]domain.Category, error) {
	fi, err := fsys.Stat(base)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%q 不是目录", base)
	}

	entries, err := fsys.ReadDir(base)
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(entries))
	for _, e := range entries {
		dir := fsys.Join(base, e.Name())
		isDir, err := resolveIsDir(fsys, dir, e)
		if err != nil {
			return nil, err
		}
		if !isDir {
			continue
		}

		c, err := scanCategory(fsys, dir, e.Name())
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func scanCategory(fsys FS, dir, name string) (domain.Category, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return domain.Category{}, err
	}

	c := domain.Category{Name: name, Images: make([]string, 0, len(entries))}
	for _, e := range entries {
		isDir, err := resolveIsDir(fsys, fsys.Join(dir, e.Name()), e)
		if err != nil {
			return domain.Category{}, err
		}
		if isDir || !domain.IsImageName(e.Name()) {
			c.Skipped++
			continue
		}
		c.Images = append(c.Images, e.Name())
	}
	return c, nil
}

// resolveIsDir 判断条目是否为目录；符号链接需要 stat 到目标。
// 悬空链接视为非目录，不报错。
func resolveIsDir(fsys FS, path string, fi os.FileInfo) (bool, error) {
	if fi.Mode()&os.ModeSymlink == 0 {
		return fi.IsDir(), nil
	}
	target, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return target.IsDir(), nil
}
