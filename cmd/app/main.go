package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/planetfeed/internal"
	pkgconfig "github.com/starford/planetfeed/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func action(entry func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := entry(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("%s error: %w", cmd.Name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "planetfeed",
		Usage:  "Scrape planetary-science news sources and post new matching articles to Reddit",
		Action: action(internal.Run),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run one posting pass (the default)",
				Action: action(internal.Run),
			},
			{
				Name:   "check",
				Usage:  "Scrape all sources and show what would be posted, without posting",
				Action: action(internal.Check),
			},
			{
				Name:   "history",
				Usage:  "List posted articles still within the retention window",
				Action: action(internal.History),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
