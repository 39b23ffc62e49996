package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"BinkAgent-Bridge/internal/action"
	"BinkAgent-Bridge/internal/api"
	"BinkAgent-Bridge/internal/diagnostics"
	"BinkAgent-Bridge/internal/observability/metrics"
	"BinkAgent-Bridge/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const defaultConfigEnv = "BINKD_CONFIG"

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "binkd",
		Short:         "Bink 智能体桥接服务",
		Long:          "binkd 把自然语言指令交给带钱包的智能体执行，并通过 HTTP 暴露动作、执行记录与指标。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv(defaultConfigEnv), "YAML 配置文件路径")

	load := func(cmd *cobra.Command) (*app, error) {
		return wireApp(cmd.Context(), configPath)
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newValidateCmd(load),
		newStatusCmd(load),
		newInvokeCmd(load),
	)
	return rootCmd
}

type loader func(cmd *cobra.Command) (*app, error)

func newServeCmd(load loader) *cobra.Command {
	var splash bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if splash {
				if err := diagnostics.Render(cmd.OutOrStdout(), diagnostics.Build(a.plugin, a.settings)); err != nil {
					logger.L().Warn("输出启动报告失败", "error", err)
				}
			}

			server := api.NewServer(api.Config{
				Address:  a.cfg.Server.Address,
				APIToken: a.cfg.Server.APIToken,
			}, a.plugin, a.settings, a.history)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return server.Start(ctx) })
			if addr := a.cfg.Server.MetricsAddress; addr != "" {
				g.Go(func() error { return metrics.StartServer(ctx, addr) })
			}
			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&splash, "splash", false, "启动时打印插件状态报告")
	return cmd
}

func newValidateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "校验宿主配置是否满足全部动作",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var failed []string
			for _, h := range a.plugin.Actions() {
				ok := h.Validate(cmd.Context(), a.settings)
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", h.Action().Name, validity(ok))
				if !ok {
					failed = append(failed, h.Action().Name)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("配置校验未通过: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}

func newStatusCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "打印插件状态报告",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return diagnostics.Render(cmd.OutOrStdout(), diagnostics.Build(a.plugin, a.settings))
		},
	}
}

func newInvokeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <action> <instruction...>",
		Short: "在本地执行一次动作",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.ToUpper(args[0])
			resp, ok, err := a.plugin.Dispatch(cmd.Context(), name, a.settings, action.Memory{
				Content: action.Content{Text: strings.Join(args[1:], " ")},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			if !ok {
				return fmt.Errorf("动作 %s 执行失败", name)
			}
			return nil
		},
	}
}
