package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/imgmanifest/internal/app/run"
	"github.com/John-Robertt/imgmanifest/internal/config"
	"github.com/John-Robertt/imgmanifest/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 把 run 层事件转成结构化日志（写到 stderr，不污染 stdout）。
type logObserver struct {
	log logrus.FieldLogger
}

func newLogObserver(log logrus.FieldLogger) *logObserver {
	return &logObserver{log: log}
}

func (o *logObserver) OnStart(eff config.EffectiveConfig) {
	fields := logrus.Fields{
		"base":    eff.BaseFolder,
		"output":  eff.Output,
		"dry_run": eff.DryRun,
	}
	if eff.ConfigFile != "" {
		fields["config"] = eff.ConfigFile
	}
	o.log.WithFields(fields).Info("开始扫描")
}

func (o *logObserver) OnCategory(c domain.Category) {
	o.log.WithFields(logrus.Fields{
		"category": c.Name,
		"images":   len(c.Images),
		"skipped":  c.Skipped,
	}).Debug("分类扫描完成")
}

func (o *logObserver) OnDone(res run.Result, dur time.Duration) {
	o.log.WithFields(logrus.Fields{
		"entries": res.Manifest.Len(),
		"written": res.Written,
		"elapsed": dur.Round(time.Millisecond).String(),
	}).Info("manifest 已生成")
}
