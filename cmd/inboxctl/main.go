// inboxctl là công cụ vận hành phiên đồng bộ từ dòng lệnh: list trang, chọn trang, refresh và nghe realtime.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"message_mate/config"
	"message_mate/internal/bootstrap"
	"message_mate/internal/global"
	"message_mate/internal/logger"
)

type contextKey int

const contextKeyApp contextKey = iota

func getApp(ctx *cli.Context) *bootstrap.App {
	return ctx.Context.Value(contextKeyApp).(*bootstrap.App)
}

func prepareApp(ctx *cli.Context) error {
	if err := logger.Init(nil); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	global.InitValidator()

	var files []string
	if path := ctx.String("env"); path != "" {
		files = append(files, path)
	}
	cfg := config.NewConfig(files...)
	if cfg == nil {
		return fmt.Errorf("failed to load config")
	}
	if store := ctx.String("store"); store != "" {
		cfg.StoreDriver = store
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	app, err := bootstrap.New(ctx.Context, cfg)
	if err != nil {
		return err
	}
	ctx.Context = context.WithValue(ctx.Context, contextKeyApp, app)
	return nil
}

func closeApp(ctx *cli.Context) error {
	if app, ok := ctx.Context.Value(contextKeyApp).(*bootstrap.App); ok {
		app.Close()
	}
	logger.Close()
	return nil
}

func main() {
	app := &cli.App{
		Name:  "inboxctl",
		Usage: "Operate the Messenger / Instagram inbox sync session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to env file (default: config/env/{GO_ENV}.env)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Override STORE_DRIVER (mongo | memory)",
			},
		},
		Commands: []*cli.Command{
			pagesCommand,
			selectCommand,
			syncCommand,
			listenCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
