package run

import (
	"time"

	"github.com/John-Robertt/imgmanifest/internal/config"
	"github.com/John-Robertt/imgmanifest/internal/domain"
)

// Observer 用于把“运行进度/阶段结果”从核心执行流程中解耦出来。
//
// 约束：run 包只负责发事件，不做任何输出（dry-run 时 stdout 只能有 manifest JSON）。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnCategory 在每个分类扫描完成后调用（按分类名排序的顺序）。
	OnCategory(c domain.Category)
	// OnDone 在成功结束时调用；dry-run 时 res.Written=false。
	OnDone(res Result, dur time.Duration)
}
