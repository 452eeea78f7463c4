package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// configEnv 指定配置文件路径的环境变量，优先级低于 --config。
const configEnv = "LEAFTOK_CONFIG"

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// flagError 标记参数解析错误，对应退出码 2。
type flagError struct {
	err error
}

func (e flagError) Error() string {
	return fmt.Sprintf("解析参数失败: %v", e.err)
}

func (e flagError) Unwrap() error {
	return e.err
}

// execute 运行 CLI 并返回退出码，方便测试。
func execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stdErr, err.Error())
		var fe flagError
		if errors.As(err, &fe) {
			return 2
		}
		return 1
	}
	return 0
}

// rootOptions 保存全局标志。
type rootOptions struct {
	configFlag string
}

// configPath 按 --config > LEAFTOK_CONFIG > config.toml 的顺序决定配置路径。
func (o *rootOptions) configPath() string {
	if o.configFlag != "" {
		return o.configFlag
	}
	if env := os.Getenv(configEnv); env != "" {
		return env
	}
	return "config.toml"
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "leaftok-site",
		Short:         "LeafTok 营销站点的构建、服务与 SEO 监控工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 LEAFTOK_CONFIG 覆盖）")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return flagError{err: err}
	})

	cmd.AddCommand(
		newBuildCmd(opts),
		newServeCmd(opts),
		newValidateCmd(opts),
		newMonitorCmd(opts),
		newCheckConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
