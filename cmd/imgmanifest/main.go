package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/John-Robertt/imgmanifest/internal/app/run"
	"github.com/John-Robertt/imgmanifest/internal/config"
	"github.com/John-Robertt/imgmanifest/internal/infra/fsx"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError 标记参数错误（退出码 2），与运行失败（退出码 1）区分。
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type cli struct {
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger
	args   config.CLIArgs
}

func execute(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr, log: newLogger(stderr)}
	cmd := c.rootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", ue.err)
		fmt.Fprint(stderr, cmd.UsageString())
		return exitUsage
	}

	code := config.Code(err)
	if code == "" {
		code = run.Code(err)
	}
	fields := logrus.Fields{"error_code": code}
	if hint := failureHint(err); hint != "" {
		fields["hint"] = hint
	}
	c.log.WithFields(fields).Error(err)
	return exitFailed
}

// failureHint 为可由用户自行修复的失败给出一句提示；没有提示时返回空串。
func failureHint(err error) string {
	if fsx.IsCrossDevice(err) {
		return "output 与其最终指向的文件跨越了文件系统边界，请把 output 指向同一文件系统内的路径"
	}
	var pe *fsx.PathTypeConflictError
	if errors.As(err, &pe) {
		if pe.Got == "dir" {
			return "output 指向了一个目录，请改为文件路径"
		}
		return "output 的上级路径不是目录：" + pe.Path
	}
	return ""
}

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imgmanifest",
		Short: "扫描分类图片目录并生成 JSON manifest",
		Long: `扫描 base 目录下的分类子目录（每个子目录即一个分类），
把其中的 .jpg/.jpeg/.png 文件汇总为 JSON 数组写入 output：

  [{"src": "/images/<分类>/<文件名>", "label": "<分类>"}, ...]

不带参数运行时使用默认值：base=public/images，output=public/data.json。`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{err: fmt.Errorf("不接受位置参数：%q", args)}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.markSet(cmd.Flags())
			return c.generate()
		},
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	c.bindFlags(cmd.Flags())
	return cmd
}

func (c *cli) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.args.BaseFolder, "base", config.DefaultBaseFolder, "图片根目录（其直接子目录为分类）")
	fs.StringVar(&c.args.Output, "output", config.DefaultOutput, "manifest 输出路径（整体覆盖）")
	fs.StringVar(&c.args.ConfigFile, "config", "", "配置文件路径（未指定时尝试 ./imgmanifest.{json,yaml,toml}）")
	fs.StringVar(&c.args.LogLevel, "log-level", config.DefaultLogLevel, "日志级别：debug|info|warn|error")
	fs.BoolVar(&c.args.DryRun, "dry-run", false, "只扫描并把 manifest 输出到 stdout，不落盘")
}

// markSet 记录哪些参数被显式指定；未指定的参数交给配置文件/环境变量/默认值决定。
func (c *cli) markSet(fs *pflag.FlagSet) {
	c.args.BaseFolderSet = fs.Changed("base")
	c.args.OutputSet = fs.Changed("output")
	c.args.LogLevelSet = fs.Changed("log-level")
}

func (c *cli) generate() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}

	eff, err := config.LoadEffective(cwd, c.args)
	if err != nil {
		return err
	}
	c.log.SetLevel(eff.LogLevel)

	// 路径在配置阶段已统一为绝对路径；osfs.Default 不做 chroot，宿主路径（含 Windows 盘符）原样透传。
	res, err := run.ExecuteWithObserver(osfs.Default, eff, newLogObserver(c.log))
	if err != nil {
		return err
	}

	if eff.DryRun {
		// dry-run：stdout 必须且仅输出 manifest JSON，摘要走 stderr。
		if _, err := c.stdout.Write(res.Encoded); err != nil {
			return err
		}
		fmt.Fprintf(c.stderr, "Manifest generated with %d entries (dry-run, not written to %s)\n", res.Manifest.Len(), res.Output)
		return nil
	}
	fmt.Fprintf(c.stdout, "Manifest generated with %d entries at %s\n", res.Manifest.Len(), res.Output)
	return nil
}

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !isTTY(w),
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
