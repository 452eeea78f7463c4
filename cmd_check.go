package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leaftok/leaftok-site/internal/logging"
)

func newCheckConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "仅校验配置后退出",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckConfig(opts.configPath())
		},
	}
}

func runCheckConfig(configPath string) error {
	env, err := loadEnv(configPath)
	if err != nil {
		return err
	}
	rules, err := env.cfg.Cache.BuildRuleTable()
	if err != nil {
		return fmt.Errorf("构建缓存规则失败: %w", err)
	}

	fields := logging.BaseFields("check_config", configPath)
	fields["site"] = env.cfg.Site.URL
	fields["locales"] = env.cfg.Site.Locales
	fields["cache_version"] = env.cfg.Cache.VersionTag()
	fields["rules"] = len(rules.Rules())
	fields["metrics_endpoint"] = env.cfg.Metrics.Endpoint
	fields["result"] = "ok"
	env.logger.WithFields(fields).Info("配置校验通过")
	return nil
}
