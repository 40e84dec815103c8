package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"message_mate/internal/api/meta/models"
)

var pageFlag = &cli.StringFlag{
	Name:     "page",
	Usage:    "Page ID",
	Required: true,
}

var pagesCommand = &cli.Command{
	Name:   "pages",
	Usage:  "Refresh the linked pages and print them",
	Before: prepareApp,
	After:  closeApp,
	Action: cmdPages,
}

var selectCommand = &cli.Command{
	Name:   "select",
	Usage:  "Select the page that receives live updates",
	Flags:  []cli.Flag{pageFlag},
	Before: prepareApp,
	After:  closeApp,
	Action: cmdSelect,
}

func cmdPages(ctx *cli.Context) error {
	app := getApp(ctx)
	if _, err := app.Engine.RefreshPages(ctx.Context); err != nil {
		return fmt.Errorf("failed to refresh pages: %w", err)
	}
	pages, err := app.Store.ListPages(ctx.Context, false)
	if err != nil {
		return err
	}
	printPages(os.Stdout, pages, app.Engine.Session().Selected())
	return nil
}

func cmdSelect(ctx *cli.Context) error {
	app := getApp(ctx)
	if _, err := app.Engine.RefreshPages(ctx.Context); err != nil {
		return fmt.Errorf("failed to refresh pages: %w", err)
	}
	page, err := app.Engine.SelectPage(ctx.Context, ctx.String("page"))
	if err != nil {
		return err
	}
	fmt.Printf("Selected page %s (%s)\n", page.PageId, page.Name)
	return nil
}

func printPages(w io.Writer, pages []models.MetaPage, selected string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE ID\tNAME\tINSTAGRAM\tACTIVE\tDEFAULT\tSELECTED")
	for _, p := range pages {
		mark := ""
		if p.PageId == selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%s\n", p.PageId, p.Name, p.BusinessAccountId, p.Active, p.IsDefault, mark)
	}
	_ = tw.Flush()
}
