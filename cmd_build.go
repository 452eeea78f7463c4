package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "渲染静态站点到 OutputPath",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(opts.configPath())
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), env, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "内容变化时自动重建")
	return cmd
}

func runBuild(ctx context.Context, env *cliEnv, watch bool) error {
	if _, err := env.buildSite(ctx); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return env.watchAndRebuild(ctx)
}
