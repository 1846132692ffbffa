package fsx

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-billy/v5"
)

// FS 是原子写入需要的最小文件系统能力（osfs.Default 与 memfs 均满足）。
type FS interface {
	billy.Basic
	billy.Symlink
}

// maxSymlinkHops 限制目标路径符号链接的解析深度，防止环。
const maxSymlinkHops = 40

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV 等错误。
var renameFunc = func(fsys billy.Basic, from, to string) error { return fsys.Rename(from, to) }

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示跨盘（EXDEV）导致的 rename 失败。
// 临时文件总是与目标同目录，出现该错误通常意味着目标路径跨越了挂载点（例如 bind mount 的单文件）。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘 rename 失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘（EXDEV）错误。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 fsys.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
func Rename(fsys billy.Basic, src, dst string) error {
	if err := renameFunc(fsys, src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// WriteFileAtomicReplace 在 dir 下原子写入 name（临时文件 + rename），若目标已存在则覆盖。
//
// - dir 必须已存在（不隐式创建父目录）
// - 目标若是符号链接：写穿到最终指向的文件，链接本身保持不变
// - 临时文件必须与最终文件在同目录，以保证 rename 的原子性
// - 目标若是目录：返回 PathTypeConflictError，不做任何写入
// - 任一步失败都会清理临时文件，旧的目标文件保持不变
func WriteFileAtomicReplace(fsys FS, dir, name string, data []byte) error {
	return writeFileAtomic(fsys, dir, name, data, 0o644)
}

func writeFileAtomic(fsys FS, dir, name string, data []byte, perm os.FileMode) error {
	if err := requireDir(fsys, dir); err != nil {
		return err
	}

	dst, err := resolveTarget(fsys, fsys.Join(dir, name))
	if err != nil {
		return err
	}
	dstDir := filepath.Dir(dst)
	if dstDir != filepath.Clean(dir) {
		if err := requireDir(fsys, dstDir); err != nil {
			return err
		}
	}

	// 创建同目录临时文件（前缀带 '.'，避免被静态站点当作资源发布）。
	tmp, err := createTemp(fsys, dstDir, "."+filepath.Base(dst)+".tmp-", perm)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = fsys.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	// Sync 只有底层是 *os.File 时才可用；memfs 等实现直接跳过。
	if s, ok := tmp.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// rename 原子替换到最终文件名；成功后 defer 中的 Remove 会因文件不存在而静默失败。
	return Rename(fsys, tmpName, dst)
}

func requireDir(fsys FS, dir string) error {
	di, err := fsys.Stat(dir)
	if err != nil {
		return err
	}
	if !di.IsDir() {
		return &PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	return nil
}

// resolveTarget 沿符号链接找到最终要被替换的普通文件路径。
// 不存在的路径（包括悬空链接的目标）原样返回，由 rename 创建。
func resolveTarget(fsys FS, path string) (string, error) {
	for i := 0; i < maxSymlinkHops; i++ {
		fi, err := fsys.Lstat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return path, nil
			}
			return "", err
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			if fi.IsDir() {
				return "", &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
			}
			return path, nil
		}

		target, err := fsys.Readlink(path)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = fsys.Join(filepath.Dir(path), target)
		}
		path = filepath.Clean(target)
	}
	return "", fmt.Errorf("符号链接层数过多：%q", path)
}

// createTemp 以最终权限创建临时文件（O_EXCL），避免依赖文件系统是否支持 Chmod。
func createTemp(fsys billy.Basic, dir, prefix string, perm os.FileMode) (billy.File, error) {
	for i := 0; i < 100; i++ {
		p := fsys.Join(dir, prefix+strconv.FormatUint(uint64(rand.Uint32()), 10))
		f, err := fsys.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
		if os.IsExist(err) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("无法在 %q 下创建临时文件", dir)
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
