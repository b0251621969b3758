package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/walicode/appstate"
)

func (c *cli) settingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show settings and preferences",
		Args:  cobra.NoArgs,
	}
	show.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		s := a.state.Settings()
		p := a.state.Preferences()
		fmt.Fprintf(a.out, "Theme:         %s\n", s.Theme)
		fmt.Fprintf(a.out, "Language:      %s\n", s.Language)
		fmt.Fprintf(a.out, "Sidebar:       %s\n", sidebarState(s.SidebarCollapsed))
		fmt.Fprintf(a.out, "Notifications: %t\n", s.Notifications)
		fmt.Fprintf(a.out, "Page size:     %d\n", p.PageSize)
		fmt.Fprintf(a.out, "Date format:   %s\n", p.DateFormat)
		fmt.Fprintf(a.out, "Timezone:      %s\n", p.Timezone)
		return nil
	})

	theme := &cobra.Command{
		Use:       "theme <light|dark>",
		Short:     "Set the theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(appstate.ThemeLight), string(appstate.ThemeDark)},
	}
	theme.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		if err := a.state.SetTheme(ctx, appstate.Theme(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Theme set to %s.\n", args[0])
		return nil
	})

	language := &cobra.Command{
		Use:   "language <tag>",
		Short: "Set the language",
		Args:  cobra.ExactArgs(1),
	}
	language.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		a.state.SetLanguage(ctx, args[0])
		fmt.Fprintf(a.out, "Language set to %s.\n", args[0])
		return nil
	})

	sidebar := &cobra.Command{
		Use:   "sidebar",
		Short: "Toggle the sidebar",
		Args:  cobra.NoArgs,
	}
	sidebar.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		collapsed := a.state.ToggleSidebar(ctx)
		fmt.Fprintf(a.out, "Sidebar %s.\n", sidebarState(collapsed))
		return nil
	})

	pageSize := &cobra.Command{
		Use:   "page-size <n>",
		Short: "Set the default page size",
		Args:  cobra.ExactArgs(1),
	}
	pageSize.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("page size must be a positive number, got %q", args[0])
		}
		p := a.state.Preferences()
		p.PageSize = n
		a.state.SetPreferences(ctx, p)
		fmt.Fprintf(a.out, "Page size set to %d.\n", n)
		return nil
	})

	settingsCmd.AddCommand(show, theme, language, sidebar, pageSize)
	return settingsCmd
}

func sidebarState(collapsed bool) string {
	if collapsed {
		return "collapsed"
	}
	return "expanded"
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		wipe  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent actions",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", appstate.DefaultRecentLimit, "Number of entries")
	cmd.Flags().BoolVar(&wipe, "clear", false, "Forget all recent actions")
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		if wipe {
			a.state.ClearRecentActions(ctx)
			fmt.Fprintln(a.out, "History cleared.")
			return nil
		}
		for _, act := range a.state.RecentActions(ctx, limit) {
			at := time.UnixMilli(act.Timestamp).Local().Format("2006-01-02 15:04:05")
			fmt.Fprintf(a.out, "%s  %s  %v\n", at, act.Type, describe(act.Data))
		}
		return nil
	})
	return cmd
}

func describe(data any) any {
	if m, ok := data.(map[string]any); ok {
		if c, ok := m["command"]; ok {
			return c
		}
	}
	return data
}
