package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultBaseFolder = "public/images"
	DefaultOutput     = "public/data.json"
	DefaultLogLevel   = "info"

	// ConfigName 是 cwd 下自动发现的配置文件名（不含扩展名；json/yaml/toml 均可）。
	ConfigName = "imgmanifest"
	// EnvPrefix 是环境变量前缀，例如 IMGMANIFEST_BASE_FOLDER。
	EnvPrefix = "IMGMANIFEST"
)

const (
	keyBaseFolder = "base_folder"
	keyOutput     = "output"
	keyLogLevel   = "log_level"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：显式传入的空串也会覆盖配置（随后被校验拒绝）。
type CLIArgs struct {
	ConfigFile string

	BaseFolder    string
	BaseFolderSet bool

	Output    string
	OutputSet bool

	LogLevel    string
	LogLevelSet bool

	DryRun bool
}

// FileConfig 对应 imgmanifest.{json,yaml,toml} 与环境变量合并后的结构。
type FileConfig struct {
	BaseFolder string `mapstructure:"base_folder"`
	Output     string `mapstructure:"output"`
	LogLevel   string `mapstructure:"log_level"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	BaseFolder string // clean + absolute
	Output     string // clean + absolute
	DryRun     bool
	LogLevel   logrus.Level

	// ConfigFile 是实际读取到的配置文件；未使用配置文件时为空。
	ConfigFile string
}

// OutputDir 与 OutputName 把 Output 拆成原子写入需要的 dir/name。
func (e EffectiveConfig) OutputDir() string  { return filepath.Dir(e.Output) }
func (e EffectiveConfig) OutputName() string { return filepath.Base(e.Output) }

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			if e.Path == "" {
				return fmt.Sprintf("%s：%v", e.Code, e.Err)
			}
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
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

// LoadEffective 发现并读取配置文件、环境变量，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/imgmanifest.{json,yaml,toml}（可选，不存在不报错）
//
// 覆盖优先级（固定）：CLI > 环境变量 IMGMANIFEST_* > 配置文件 > 内置默认
//
// 相对路径统一以 cwd 为基准转为绝对路径。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfgPath, err := readConfigFile(v, cwdAbs, cli.ConfigFile)
	if err != nil {
		return EffectiveConfig{}, err
	}

	// CLI 显式值直接 Set：viper 中 Set 的优先级最高。
	if cli.BaseFolderSet {
		v.Set(keyBaseFolder, cli.BaseFolder)
	}
	if cli.OutputSet {
		v.Set(keyOutput, cli.Output)
	}
	if cli.LogLevelSet {
		v.Set(keyLogLevel, cli.LogLevel)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBaseFolder, DefaultBaseFolder)
	v.SetDefault(keyOutput, DefaultOutput)
	v.SetDefault(keyLogLevel, DefaultLogLevel)
}

// readConfigFile 读取配置文件，返回实际使用的路径（未使用时为空串）。
func readConfigFile(v *viper.Viper, cwdAbs, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		cfgPath := absCleanFrom(cwdAbs, explicit)
		if _, err := os.Stat(cfgPath); err != nil {
			if os.IsNotExist(err) {
				return "", &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
			}
			return "", &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return cfgPath, nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(cwdAbs)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
	}
	return v.ConfigFileUsed(), nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	if strings.TrimSpace(fc.BaseFolder) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("base_folder 不能为空")}
	}
	if strings.TrimSpace(fc.Output) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("output 不能为空")}
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(fc.LogLevel))
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("log_level 无效：%q", fc.LogLevel)}
	}

	return EffectiveConfig{
		BaseFolder: absCleanFrom(cwdAbs, fc.BaseFolder),
		Output:     absCleanFrom(cwdAbs, fc.Output),
		DryRun:     cli.DryRun,
		LogLevel:   level,
		ConfigFile: cfgPath,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
