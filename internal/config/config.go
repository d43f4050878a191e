package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/John-Robertt/moanip/internal/logx"
)

const (
	// ErrCodeInvalid 表示环境变量或 CLI 参数的值不合法。
	ErrCodeInvalid = "config_invalid"

	// ErrCodeDotEnv 表示 .env 文件存在但无法读取/解析。
	ErrCodeDotEnv = "config_dotenv"
)

const (
	DefaultBaseURL  = "https://www.moanmyip.com"
	DefaultLogLevel = "info"
	DefaultDotEnv   = ".env"
)

const (
	EnvBaseURL      = "MOANIP_BASE_URL"
	EnvLog          = "MOANIP_LOG"
	EnvStrictStatus = "MOANIP_STRICT_STATUS"
	EnvTimeout      = "MOANIP_TIMEOUT"
	EnvTmpDir       = "MOANIP_TMPDIR"
)

// CLIArgs 保留“是否显式指定”的信息，保证 --strict-status=false 能覆盖环境变量里的 true。
type CLIArgs struct {
	BaseURL    string
	BaseURLSet bool

	// Verbose 等价于 MOANIP_LOG=debug（只提升，不降低）。
	Verbose bool

	StrictStatus    bool
	StrictStatusSet bool

	Timeout    time.Duration
	TimeoutSet bool
}

// Env 抽象环境变量读取（测试可注入 map）。
type Env func(key string) (string, bool)

// OSEnv 读取进程环境变量。
func OSEnv() Env { return os.LookupEnv }

// MapEnv 把 map 包装为 Env。
func MapEnv(m map[string]string) Env {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// EffectiveConfig 是合并后的最终配置，启动时构造一次，按值传给各组件。
type EffectiveConfig struct {
	// BaseURL 是首页地址，同时作为 audio src 的解析基准。
	BaseURL *url.URL

	// LogLevel 已经过 logx.ParseLevel 校验。
	LogLevel string

	// StrictStatus=true 时非 2xx 响应视为失败；默认沿用“信任任何 body”的行为。
	StrictStatus bool

	// Timeout 为 0 表示不设超时。
	Timeout time.Duration

	// TempDir 为空表示使用 os.TempDir()。
	TempDir string
}

// Default 返回不读取任何外部输入的默认配置。
func Default() EffectiveConfig {
	u, _ := url.Parse(DefaultBaseURL)
	return EffectiveConfig{
		BaseURL:  u,
		LogLevel: DefaultLogLevel,
	}
}

// Error 是配置阶段的结构化错误（带 error_code 与出错的 key）。
type Error struct {
	Code string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Key != "" && e.Err != nil:
		return fmt.Sprintf("%s：%s 无效：%v", e.Code, e.Key, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s：%v", e.Code, e.Err)
	default:
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

// LoadDotEnv 把 path 指向的 .env 载入进程环境；文件不存在不算错误。
// godotenv 不覆盖已存在的变量，因此进程环境优先于 .env。
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultDotEnv
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &Error{Code: ErrCodeDotEnv, Key: path, Err: err}
	}
	return nil
}

// LoadEffective 合并默认值、环境变量与 CLI 参数。
//
// 覆盖优先级（固定）：CLI > 环境变量（含 .env）> 默认。
// MOANIP_TMPDIR 只由环境变量控制（CLI 不暴露）。
func LoadEffective(env Env, cli CLIArgs) (EffectiveConfig, error) {
	if env == nil {
		env = MapEnv(nil)
	}
	eff := Default()

	rawBase := DefaultBaseURL
	if v, ok := lookup(env, EnvBaseURL); ok {
		rawBase = v
	}
	if cli.BaseURLSet {
		rawBase = strings.TrimSpace(cli.BaseURL)
	}
	u, err := parseBaseURL(rawBase)
	if err != nil {
		key := EnvBaseURL
		if cli.BaseURLSet {
			key = "--base-url"
		}
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: key, Err: err}
	}
	eff.BaseURL = u

	level := DefaultLogLevel
	if v, ok := lookup(env, EnvLog); ok {
		level = v
	}
	if cli.Verbose {
		level = "debug"
	}
	lv, err := logx.ParseLevel(level)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: EnvLog, Err: err}
	}
	eff.LogLevel = lv.String()

	if v, ok := lookup(env, EnvStrictStatus); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: EnvStrictStatus, Err: err}
		}
		eff.StrictStatus = b
	}
	if cli.StrictStatusSet {
		eff.StrictStatus = cli.StrictStatus
	}

	if v, ok := lookup(env, EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: EnvTimeout, Err: err}
		}
		eff.Timeout = d
	}
	if cli.TimeoutSet {
		eff.Timeout = cli.Timeout
	}
	if eff.Timeout < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Key: EnvTimeout, Err: fmt.Errorf("不能为负数：%s", eff.Timeout)}
	}

	if v, ok := lookup(env, EnvTmpDir); ok {
		eff.TempDir = v
	}

	return eff, nil
}

// lookup 把“已设置但为空白”当作未设置。
func lookup(env Env, key string) (string, bool) {
	v, ok := env(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("不能为空")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("必须是 http/https：%q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("缺少 host：%q", raw)
	}
	return u, nil
}
