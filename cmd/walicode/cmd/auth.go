package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/walicode/analytics"
	"github.com/jmcleod/walicode/api"
	"github.com/jmcleod/walicode/auth"
)

func (c *cli) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username|email>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		password, err := readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}
		params := api.LoginParams{Password: password}
		if strings.Contains(args[0], "@") {
			params.Email = args[0]
		} else {
			params.Username = args[0]
		}
		p, err := a.auth.Login(ctx, params)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		a.analytics.TrackAction(ctx, analytics.Action{Name: "login", Category: "auth"})
		if p == nil {
			fmt.Fprintln(a.out, "Logged in.")
			return nil
		}
		a.analytics.SetUserProperties(ctx, map[string]any{"user_id": string(p.ID), "member": p.Member})
		fmt.Fprintf(a.out, "Logged in as %s.\n", p.UserName)
		return nil
	})
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create an account",
		Long:  "Create an account. Request a code first with verify-email.",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&code, "code", "", "Verification code sent by email")
	cmd.MarkFlagRequired("code")
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		password, err := readPassword(cmd, "Choose a password: ")
		if err != nil {
			return err
		}
		env, err := a.auth.Register(ctx, api.RegisterParams{
			Username: args[0],
			Email:    args[1],
			Password: password,
			Code:     code,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := env.Err(); err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		a.analytics.TrackAction(ctx, analytics.Action{Name: "register", Category: "auth"})
		fmt.Fprintf(a.out, "Account %s created. Run `%s login %s` to sign in.\n", args[0], rootName, args[0])
		return nil
	})
	return cmd
}

func (c *cli) verifyEmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-email <email>",
		Short: "Send a registration code",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, args []string) error {
		env, err := a.auth.SendEmailVerification(ctx, args[0])
		if err != nil {
			return err
		}
		if err := env.Err(); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "A verification code was sent to %s.\n", args[0])
		return nil
	})
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		if !a.auth.IsLoggedIn() {
			fmt.Fprintln(a.out, "Not logged in.")
			return nil
		}
		// Ending the server session is best-effort; local state goes either way.
		if _, err := api.NewAuthAPI(a.client).Logout(ctx); err != nil && !api.IsSessionExpired(err) {
			a.logger.WarnContext(ctx, "server logout failed", "error", err)
		}
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		a.analytics.TrackAction(ctx, analytics.Action{Name: "logout", Category: "auth"})
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	})
	return cmd
}

func (c *cli) whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		if !a.auth.IsLoggedIn() {
			return errNotLoggedIn
		}
		p, err := a.auth.GetLoginUser(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		fmt.Fprintf(a.out, "ID:       %s\nUsername: %s\n", p.ID, p.UserName)
		if p.Email != "" {
			fmt.Fprintf(a.out, "Email:    %s\n", p.Email)
		}
		fmt.Fprintf(a.out, "Member:   %s\n", p.Member)
		return nil
	})
	return cmd
}

var errNotLoggedIn = fmt.Errorf("not logged in, run `%s login` first", rootName)

func (c *cli) memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Check membership",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		st := a.auth.CheckMemberStatus(ctx)
		switch st.State {
		case auth.MemberStatusNotLoggedIn:
			return errNotLoggedIn
		case auth.MemberStatusUnknown:
			return fmt.Errorf("checking membership: %w", st.Err)
		case auth.MemberStatusMember:
			fmt.Fprintf(a.out, "%s is a %s member.\n", st.Profile.UserName, st.Profile.Member)
		default:
			fmt.Fprintf(a.out, "%s is not a member.\n", st.Profile.UserName)
		}
		return nil
	})
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local session state",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		if !a.auth.IsLoggedIn() {
			fmt.Fprintln(a.out, "Logged in: no")
			return nil
		}
		fmt.Fprintln(a.out, "Logged in: yes")
		if p := a.auth.Profile(); p != nil {
			fmt.Fprintf(a.out, "User:      %s (%s)\n", p.UserName, p.ID)
			fmt.Fprintf(a.out, "Member:    %t\n", a.auth.IsMember())
		}
		if at, ok := a.auth.LoginTime(ctx); ok {
			d, _ := a.auth.LoginDuration(ctx)
			fmt.Fprintf(a.out, "Since:     %s (%s ago)\n", at.Local().Format("2006-01-02 15:04:05"), formatDuration(d))
		}
		valid := a.auth.IsSessionValid(ctx, a.cfg.MaxSessionAge)
		fmt.Fprintf(a.out, "Valid:     %t\n", valid)
		if !valid {
			fmt.Fprintf(a.out, "The session is older than %s. Run `%s login` to refresh it.\n", a.cfg.MaxSessionAge, rootName)
		}
		return nil
	})
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show token diagnostics",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = c.run(func(ctx context.Context, a *app, _ []string) error {
		st := a.auth.TokenStatus(ctx)
		fmt.Fprintf(a.out, "Token:      %t\n", st.HasToken)
		if st.HasTokenName {
			fmt.Fprintf(a.out, "Name:       %s\n", st.TokenName)
		}
		if st.Preview != "" {
			fmt.Fprintf(a.out, "Value:      %s\n", st.Preview)
		}
		if st.Backup != nil {
			fmt.Fprintf(a.out, "Backup:     %s=%s\n", st.Backup.TokenName, st.Backup.TokenValue)
		}
		return nil
	})
	return cmd
}
