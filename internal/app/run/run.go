package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/John-Robertt/imgmanifest/internal/config"
	"github.com/John-Robertt/imgmanifest/internal/domain"
	"github.com/John-Robertt/imgmanifest/internal/infra/fsx"
	"github.com/John-Robertt/imgmanifest/internal/scan"
)

// FS 是一次 run 需要的文件系统能力：扫描（只读）+ 原子写入。
// 生产环境传 osfs.Default，测试传 memfs.New()。
type FS interface {
	billy.Basic
	billy.Dir
	billy.Symlink
}

var (
	_ scan.FS = FS(nil)
	_ fsx.FS  = FS(nil)
)

// Result 是一次 run 的产物。
type Result struct {
	Manifest domain.Manifest
	// Encoded 是落盘（或 dry-run 时输出到 stdout）的完整字节。
	Encoded []byte
	// Output 是 manifest 的目标路径（dry-run 时也会填写）。
	Output  string
	Written bool
}

// Error 是执行阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeScanFailed:
		return fmt.Sprintf("%s：扫描 %q 失败：%v", e.Code, e.Path, e.Err)
	case domain.ErrCodeWriteFailed:
		return fmt.Sprintf("%s：写入 %q 失败：%v", e.Code, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Build 扫描 base 并构造排序后的 Manifest，不做任何写入。
func Build(fsys FS, base string, obs Observer) (domain.Manifest, error) {
	categories, err := scan.ScanCategories(fsys, base)
	if err != nil {
		return domain.Manifest{}, &Error{Code: domain.ErrCodeScanFailed, Path: base, Err: err}
	}
	if obs != nil {
		for _, c := range categories {
			obs.OnCategory(c)
		}
	}
	return domain.NewManifest(categories), nil
}

// Execute 执行一次完整生成：扫描 -> 构造 -> 编码 -> 原子写入（dry-run 跳过写入）。
// 任一步失败立即返回，不做重试；写入失败时旧的 manifest 保持不变。
func Execute(fsys FS, eff config.EffectiveConfig) (Result, error) {
	return ExecuteWithObserver(fsys, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(fsys FS, eff config.EffectiveConfig, obs Observer) (Result, error) {
	started := time.Now()

	if obs != nil {
		obs.OnStart(eff)
	}

	m, err := Build(fsys, eff.BaseFolder, obs)
	if err != nil {
		return Result{}, err
	}

	b, err := m.Encode()
	if err != nil {
		return Result{}, &Error{Code: domain.ErrCodeEncodeFailed, Err: err}
	}

	res := Result{Manifest: m, Encoded: b, Output: eff.Output}
	if !eff.DryRun {
		if err := fsx.WriteFileAtomicReplace(fsys, eff.OutputDir(), eff.OutputName(), b); err != nil {
			return Result{}, &Error{Code: domain.ErrCodeWriteFailed, Path: eff.Output, Err: err}
		}
		res.Written = true
	}

	if obs != nil {
		obs.OnDone(res, time.Since(started))
	}
	return res, nil
}
