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

	"moodboard/server/internal/app"
	"moodboard/server/internal/config"
	pkgconfig "moodboard/server/pkg/config"
)

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runJoin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunAgent(ctx, cfg, app.AgentOptions{
		WSURL:    cmd.String("url"),
		RoomID:   cmd.String("room"),
		Username: cmd.String("username"),
		DocID:    cmd.String("doc"),
	})
}

func main() {
	cmd := &cli.Command{
		Name:  "moodboard",
		Usage: "Collaborative moodboard: room hub server and canvas replica agent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("MOODBOARD_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the collaboration server: room hub, websocket endpoint, document API",
				Action: runServe,
			},
			{
				Name:   "join",
				Usage:  "Join a room as a headless replica and persist its canvas locally",
				Action: runJoin,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Websocket endpoint, e.g. ws://localhost:8080/ws",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "room",
						Usage:    "Room id to join",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "username",
						Usage: "Display name announced to the room",
						Value: "archiver",
					},
					&cli.StringFlag{
						Name:  "doc",
						Usage: "Local document id; defaults to the room id",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
