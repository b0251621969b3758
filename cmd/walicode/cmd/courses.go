package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmcleod/walicode/analytics"
	"github.com/jmcleod/walicode/api"
)

func (c *cli) coursesCmd() *cobra.Command {
	coursesCmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse the course catalogue",
	}
	coursesCmd.AddCommand(c.coursesListCmd(), c.coursesChaptersCmd(), c.coursesContentCmd())
	return coursesCmd
}

func (c *cli) coursesListCmd() *cobra.Command {
	var params api.CoursePageParams
	cmd := &cobra.Command{
		Use:   "list [keyword]",
		Short: "List courses",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.Flags().IntVar(&params.PageNum, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&params.PageSize, "size", 0, "Page size (default from settings)")
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		if params.PageSize <= 0 {
			params.PageSize = a.state.Preferences().PageSize
		}
		if len(args) == 1 {
			params.Keyword = args[0]
			a.analytics.TrackEvent(ctx, "search", map[string]any{"keyword": params.Keyword})
		}
		page, err := a.courses.CoursePage(ctx, params)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tMEMBERS ONLY")
		for _, co := range page.Records {
			fmt.Fprintf(tw, "%s\t%s\t%t\n", co.ID, co.Title, co.MemberOnly)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Page %d, %d of %d courses.\n", page.Current, len(page.Records), page.Total)
		return nil
	})
	return cmd
}

func (c *cli) coursesChaptersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters <course-id>",
		Short: "List the chapters of a course",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		chapters, err := a.courses.CourseChapters(ctx, args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\t#\tTITLE")
		for _, ch := range chapters {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", ch.ID, ch.Sort, ch.Title)
		}
		return tw.Flush()
	})
	return cmd
}

func (c *cli) coursesContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content <chapter-id>",
		Short: "Print a chapter",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		content, err := a.courses.ChapterContent(ctx, args[0])
		if err != nil {
			return err
		}
		a.analytics.TrackAction(ctx, analytics.Action{Name: "read", Category: "chapter", Label: string(content.ChapterID)})
		fmt.Fprintln(a.out, content.Content)
		return nil
	})
	return cmd
}
