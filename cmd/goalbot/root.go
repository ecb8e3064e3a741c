package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/m3rciful/goalbot/core/bootstrap"
	"github.com/m3rciful/goalbot/core/buildinfo"
	corecmd "github.com/m3rciful/goalbot/core/cmd"
	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/internal/app"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "goalbot",
		Short:         "Telegram bot for listing and creating goals",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().String("config", "", "Config file path (overrides "+configEnvVar+").")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func runnerOptions(cmd *cobra.Command) corecmd.Options {
	path, _ := cmd.Flags().GetString("config")
	return corecmd.Options{
		ConfigPath:        path,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
	}
}

// loadAppConfig resolves and loads the config outside the long-running path.
func loadAppConfig(cmd *cobra.Command) (*app.Config, error) {
	path, err := corecmd.ResolveConfigPath(runnerOptions(cmd))
	if err != nil {
		return nil, err
	}
	return app.LoadConfig(path)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Apply migrations and start the long-polling update loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := runnerOptions(cmd)
			opts.Bootstrap = func(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				cfg, ok := carrier.(*app.Config)
				if !ok {
					return nil, fmt.Errorf("unexpected config type %T", carrier)
				}
				res, err := bootstrap.Run(bootstrap.Options{
					Config:   cfg.CoreConfig(),
					Database: cfg.Database,
				})
				if err != nil {
					return nil, err
				}
				application, err := app.New(ctx, cfg, res.DB)
				if err != nil {
					_ = res.DB.Close()
					return nil, err
				}
				return application, nil
			}
			return corecmd.Run(opts)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			defer shutdownLogger()
			_, err = bootstrap.Run(bootstrap.Options{
				Config:      cfg.CoreConfig(),
				Database:    cfg.Database,
				SkipConnect: true,
			})
			return err
		},
	}
}

func newLinkCmd() *cobra.Command {
	var (
		code      string
		accountID int64
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Redeem a verification code for an account and notify the chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}
			defer shutdownLogger()
			res, err := bootstrap.Run(bootstrap.Options{
				Config:         cfg.CoreConfig(),
				Database:       cfg.Database,
				SkipMigrations: true,
			})
			if err != nil {
				return err
			}
			application, err := app.New(cmd.Context(), cfg, res.DB)
			if err != nil {
				_ = res.DB.Close()
				return err
			}
			defer application.Close()

			identity, err := application.CompleteLink(cmd.Context(), code, accountID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chat %d linked to account %d\n", identity.ChatID, accountID)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Verification code shown to the chat.")
	cmd.Flags().Int64Var(&accountID, "account", 0, "Account id to link.")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func shutdownLogger() {
	if err := logger.Shutdown(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
