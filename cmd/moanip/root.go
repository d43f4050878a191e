package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/moanip/internal/app/run"
	"github.com/John-Robertt/moanip/internal/audio"
	"github.com/John-Robertt/moanip/internal/config"
	"github.com/John-Robertt/moanip/internal/infra/httpx"
	"github.com/John-Robertt/moanip/internal/logx"
)

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// attribution 在启动时无条件写到 stderr。
const attribution = "This program is made possible thanks to https://www.moanmyip.com\n" +
	"The audio clip is entirely generated and hosted by said website.\n"

// cliEnv 汇总 CLI 的外部依赖（测试可替换为内存实现与假设备）。
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer

	getenv     config.Env
	dotEnvPath string

	decoder audio.Decoder
	newSink func() audio.Sink
}

func defaultEnv() cliEnv {
	return cliEnv{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		getenv:     config.OSEnv(),
		dotEnvPath: config.DefaultDotEnv,
		decoder:    audio.MP3Decoder{},
		newSink:    func() audio.Sink { return &audio.OtoSink{} },
	}
}

// usageError 标记“参数/配置错误”（退出码 2）。
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd(ctx context.Context, env cliEnv) *cobra.Command {
	var (
		baseURL string
		verbose bool
		strict  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "moanip",
		Short: "抓取 moanmyip 首页，打印外网 IP 并播放对应的音频",
		Long: `moanip 请求 https://www.moanmyip.com 首页，输出页面上展示的外网 IP（stdout 仅此一行），
然后下载页面里的音频到临时文件，在默认输出设备上播放完毕后退出。

环境变量（可写入当前目录的 .env）：
  MOANIP_BASE_URL       首页地址（默认 https://www.moanmyip.com）
  MOANIP_LOG            日志级别：trace/debug/info/warn/error（默认 info）
  MOANIP_STRICT_STATUS  true 时非 2xx 响应视为失败（默认 false）
  MOANIP_TIMEOUT        单次请求超时，例如 30s（默认不限）
  MOANIP_TMPDIR         临时文件目录（默认系统临时目录）`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(env.stderr, attribution)

			if err := config.LoadDotEnv(env.dotEnvPath); err != nil {
				return &usageError{err: err}
			}
			flags := cmd.Flags()
			eff, err := config.LoadEffective(env.getenv, config.CLIArgs{
				BaseURL:         baseURL,
				BaseURLSet:      flags.Changed("base-url"),
				Verbose:         verbose,
				StrictStatus:    strict,
				StrictStatusSet: flags.Changed("strict-status"),
				Timeout:         timeout,
				TimeoutSet:      flags.Changed("timeout"),
			})
			if err != nil {
				return &usageError{err: err}
			}

			log, err := logx.New(env.stderr, eff.LogLevel)
			if err != nil {
				return &usageError{err: err}
			}
			log.Debug().
				Str("base_url", eff.BaseURL.String()).
				Bool("strict_status", eff.StrictStatus).
				Dur("timeout", eff.Timeout).
				Msg("config loaded")

			client := httpx.NewClient(httpx.Options{Timeout: eff.Timeout, Logger: log})
			return run.Execute(ctx, eff, run.Deps{
				Client:  client,
				Decoder: env.decoder,
				Sink:    env.newSink(),
				Stdout:  env.stdout,
				Log:     log,
			}, run.LogObserver{Log: log})
		},
	}

	cmd.SetOut(env.stderr)
	cmd.SetErr(env.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := cmd.Flags()
	f.StringVar(&baseURL, "base-url", config.DefaultBaseURL, "首页地址（覆盖 MOANIP_BASE_URL）")
	f.BoolVarP(&verbose, "verbose", "v", false, "输出 debug 日志（等价于 MOANIP_LOG=debug）")
	f.BoolVar(&strict, "strict-status", false, "非 2xx 响应视为失败（覆盖 MOANIP_STRICT_STATUS）")
	f.DurationVar(&timeout, "timeout", 0, "单次请求超时，0 表示不限（覆盖 MOANIP_TIMEOUT）")
	return cmd
}

// execute 运行 CLI 并返回退出码；错误统一在这里渲染一次。
func execute(ctx context.Context, args []string, env cliEnv) int {
	cmd := newRootCmd(ctx, env)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(env.stderr, "Error: %v\n", err)

	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitFailed
}
