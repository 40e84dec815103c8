package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

var syncCommand = &cli.Command{
	Name:   "sync",
	Usage:  "Refresh conversations and messages of a page",
	Flags:  []cli.Flag{pageFlag},
	Before: prepareApp,
	After:  closeApp,
	Action: cmdSync,
}

var listenCommand = &cli.Command{
	Name:   "listen",
	Usage:  "Select a page and apply live updates until interrupted",
	Flags:  []cli.Flag{pageFlag},
	Before: prepareApp,
	After:  closeApp,
	Action: cmdListen,
}

func cmdSync(ctx *cli.Context) error {
	app := getApp(ctx)
	// store memory bắt đầu rỗng: list trang trước để Refresh tìm thấy trang
	if _, err := app.Engine.RefreshPages(ctx.Context); err != nil {
		return fmt.Errorf("failed to refresh pages: %w", err)
	}
	res, err := app.Engine.Refresh(ctx.Context, ctx.String("page"))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func cmdListen(ctx *cli.Context) error {
	app := getApp(ctx)
	if _, err := app.Engine.RefreshPages(ctx.Context); err != nil {
		return fmt.Errorf("failed to refresh pages: %w", err)
	}
	page, err := app.Engine.SelectPage(ctx.Context, ctx.String("page"))
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Printf("Listening on page %s (%s), press Ctrl+C to stop\n", page.PageId, page.Name)
	<-sigCtx.Done()

	unread, err := app.Engine.Unread(ctx.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Stopped. Unread messages: %d\n", unread)
	return nil
}
