package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <page-id>",
	Short: "Scrape an organization, store it and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, appLogger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close(cmd.Context())
			_ = appLogger.Sync()
		}()

		res, err := a.Service().Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderOrganization(res.View)
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <page-id> <full-name>",
	Short: "Record a person as a follower of a stored organization",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, appLogger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close(cmd.Context())
			_ = appLogger.Sync()
		}()

		name := strings.Join(args[1:], " ")
		follower, err := a.Service().Follow(cmd.Context(), args[0], db_model.Person{FullName: name})
		if err != nil {
			return err
		}
		fmt.Printf("%s follows %s since %s\n", follower.FullName, args[0], humanize.Time(follower.FollowedAt))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// providers migrate the schema when they are opened
		a, appLogger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = appLogger.Sync()
		}()
		fmt.Println("schema is up to date")
		return a.Close(cmd.Context())
	},
}

func renderOrganization(view *db_model.OrganizationView) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(view.Name)
	t.AppendRows([]table.Row{
		{"Page ID", view.PageID},
		{"Industry", deref(view.Industry)},
		{"Followers", humanize.Comma(view.FollowerCount)},
		{"Employees", humanize.Comma(view.EmployeeCount)},
		{"Headquarters", deref(view.Headquarters)},
		{"Website", deref(view.Website)},
		{"Source", view.Source},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(view.Posts) > 0 {
		posts := table.NewWriter()
		posts.SetOutputMirror(os.Stdout)
		posts.AppendHeader(table.Row{"Posted", "Likes", "Comments", "Content"})
		for _, p := range view.Posts {
			posted := "-"
			if p.PostedAt != nil {
				posted = humanize.Time(*p.PostedAt)
			}
			posts.AppendRow(table.Row{posted, humanize.Comma(p.LikeCount), humanize.Comma(p.CommentCount), truncate(deref(p.Content), 60)})
		}
		posts.SetStyle(table.StyleRounded)
		posts.Render()
	}

	if len(view.Employees) > 0 {
		people := table.NewWriter()
		people.SetOutputMirror(os.Stdout)
		people.AppendHeader(table.Row{"Name", "Title", "Location"})
		for _, e := range view.Employees {
			people.AppendRow(table.Row{e.FullName, deref(e.JobTitle), deref(e.Location)})
		}
		people.SetStyle(table.StyleRounded)
		people.Render()
	}

	fmt.Printf("stored %s at %s\n", view.PageID, view.UpdatedAt.Format(time.RFC3339))
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
