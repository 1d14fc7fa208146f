package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/spf13/cobra"
)

func loginCmd(h *holder) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and start a full sync",
		Args:  cobra.NoArgs,
		RunE: h.run(func(ctx context.Context, a *App, _ []string) error {
			if email == "" {
				var err error
				if email, err = GetSimpleText(a.in, "Enter email", a.out); err != nil {
					return err
				}
			}

			pass, err := GetPassphrase(a.in, a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pass)

			if err := a.sync.Login(ctx, email, pass, a.cfg.ServerURL); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Logged in as %s\n", email)
			a.syncSoon()
			return nil
		}),
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func logoutCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: h.run(func(ctx context.Context, a *App, _ []string) error {
			if err := a.sync.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		}),
	}
}

func statusCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and sync state",
		Args:  cobra.NoArgs,
		RunE: h.run(func(_ context.Context, a *App, _ []string) error {
			st := a.sync.Status()

			rows := [][]string{{"session", st.Session.String()}}
			if st.Email != "" {
				rows = append(rows,
					[]string{"email", st.Email},
					[]string{"server", st.Server})
			}

			lastSync := "never"
			if st.Cursor.LastSync > 0 {
				lastSync = formatTime(time.Unix(st.Cursor.LastSync, 0))
			}
			rows = append(rows, []string{"last sync", lastSync})

			if st.Cursor.NeedsFullSync {
				rows = append(rows, []string{"full sync", "pending"})
			}
			if !st.TokenExpiry.IsZero() {
				rows = append(rows, []string{"token expires", formatTime(st.TokenExpiry)})
			}
			return printTable(a.out, nil, rows)
		}),
	}
}

func syncCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync with the server now",
		Args:  cobra.NoArgs,
		RunE: h.run(func(ctx context.Context, a *App, _ []string) error {
			out, err := a.sync.Sync(ctx)
			if err != nil {
				return err
			}
			a.dirty.Store(false)
			fmt.Fprintln(a.out, summarize(out))
			return nil
		}),
	}
}
