package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/spf13/cobra"
)

// now is a test seam.
var now = time.Now

func taskCmd(h *holder) *cobra.Command {
	pick := func(a *App) services.RecordService[models.Task] { return a.tasks }

	cmd := &cobra.Command{Use: "task", Short: "Manage tracked tasks"}
	cmd.AddCommand(
		taskAddCmd(h),
		listCmd(h, pick, []string{"UID", "NAME", "PROJECT", "START", "DURATION", "TAGS"}, func(t models.Task) []string {
			return []string{t.UID, t.Name, t.Project, formatTime(t.StartTime), formatDuration(t.Duration()), strings.Join(t.Tags, ",")}
		}),
		taskStopCmd(h),
		deleteCmd(h, pick),
		importCmd(h, pick),
	)
	return cmd
}

func taskAddCmd(h *holder) *cobra.Command {
	var (
		t           models.Task
		start, stop string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Start (or record) a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			t.Name = strings.Join(args, " ")

			var err error
			if t.StartTime, err = parseTime(start); err != nil {
				return err
			}
			if stop != "" {
				if t.StopTime, err = parseTime(stop); err != nil {
					return err
				}
				if t.StopTime.Before(t.StartTime) {
					return fmt.Errorf("%w: stop is before start", common.ErrInvalidInput)
				}
			}

			created, err := a.tasks.Create(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "task %s added\n", created.UID)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&t.Project, "project", "p", "", "project name")
	f.StringSliceVarP(&t.Tags, "tag", "t", nil, "tag (repeatable)")
	f.Float64Var(&t.Rate, "rate", 0, "hourly rate")
	f.StringVar(&t.Currency, "currency", "", "rate currency")
	f.StringVar(&start, "start", "now", `start time: "now", "15:04", "2006-01-02 15:04" or RFC 3339`)
	f.StringVar(&stop, "stop", "", "stop time, same formats as --start")
	return cmd
}

func taskStopCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <uid>",
		Short: "Stop a running task",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			t, err := resolve(ctx, a.tasks, args[0])
			if err != nil {
				return err
			}
			if !t.StopTime.IsZero() {
				return fmt.Errorf("%w: task %s is not running", common.ErrInvalidInput, t.UID)
			}
			t.StopTime = now()

			t, err = a.tasks.Update(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "task %s stopped after %s\n", t.UID, formatDuration(t.Duration()))
			return nil
		}),
	}
}

func shortcutCmd(h *holder) *cobra.Command {
	pick := func(a *App) services.RecordService[models.Shortcut] { return a.shortcuts }

	cmd := &cobra.Command{Use: "shortcut", Short: "Manage task shortcuts"}
	cmd.AddCommand(
		shortcutAddCmd(h),
		listCmd(h, pick, []string{"UID", "NAME", "PROJECT", "RATE", "TAGS"}, func(s models.Shortcut) []string {
			return []string{s.UID, s.Name, s.Project, formatRate(s.Rate, s.Currency), strings.Join(s.Tags, ",")}
		}),
		deleteCmd(h, pick),
		importCmd(h, pick),
	)
	return cmd
}

func shortcutAddCmd(h *holder) *cobra.Command {
	var s models.Shortcut
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a shortcut",
		Args:  cobra.MinimumNArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			s.Name = strings.Join(args, " ")
			created, err := a.shortcuts.Create(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "shortcut %s added\n", created.UID)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&s.Project, "project", "p", "", "project name")
	f.StringSliceVarP(&s.Tags, "tag", "t", nil, "tag (repeatable)")
	f.Float64Var(&s.Rate, "rate", 0, "hourly rate")
	f.StringVar(&s.Currency, "currency", "", "rate currency")
	f.StringVar(&s.ColorHex, "color", "", "display color, e.g. #3366ff")
	return cmd
}

func todoCmd(h *holder) *cobra.Command {
	pick := func(a *App) services.RecordService[models.Todo] { return a.todos }

	cmd := &cobra.Command{Use: "todo", Short: "Manage planned todos"}
	cmd.AddCommand(
		todoAddCmd(h),
		listCmd(h, pick, []string{"UID", "NAME", "DATE", "DONE", "PROJECT"}, func(t models.Todo) []string {
			done := ""
			if t.IsCompleted {
				done = "x"
			}
			return []string{t.UID, t.Name, t.Date.Format(time.DateOnly), done, t.Project}
		}),
		todoDoneCmd(h),
		deleteCmd(h, pick),
		importCmd(h, pick),
	)
	return cmd
}

func todoAddCmd(h *holder) *cobra.Command {
	var (
		t    models.Todo
		date string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Plan a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			t.Name = strings.Join(args, " ")

			t.Date = now()
			if date != "" {
				d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
				if err != nil {
					return fmt.Errorf("%w: date %q: %w", common.ErrInvalidInput, date, err)
				}
				t.Date = d
			}
			y, m, d := t.Date.Date()
			t.Date = time.Date(y, m, d, 0, 0, 0, 0, time.Local)

			created, err := a.todos.Create(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "todo %s added\n", created.UID)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&t.Project, "project", "p", "", "project name")
	f.StringSliceVarP(&t.Tags, "tag", "t", nil, "tag (repeatable)")
	f.Float64Var(&t.Rate, "rate", 0, "hourly rate")
	f.StringVar(&date, "date", "", "day in YYYY-MM-DD (default today)")
	return cmd
}

func todoDoneCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "done <uid>",
		Short: "Mark a todo as completed",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			t, err := resolve(ctx, a.todos, args[0])
			if err != nil {
				return err
			}
			t.IsCompleted = true
			if _, err := a.todos.Update(ctx, t); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "todo %s done\n", t.UID)
			return nil
		}),
	}
}

func listCmd[T models.Record[T]](h *holder, pick func(*App) services.RecordService[T], header []string, row func(T) []string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "List records",
		Args:    cobra.NoArgs,
		RunE: h.run(func(ctx context.Context, a *App, _ []string) error {
			recs, err := pick(a).List(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, row(r))
			}
			return printTable(a.out, header, rows)
		}),
	}
}

func deleteCmd[T models.Record[T]](h *holder, pick func(*App) services.RecordService[T]) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <uid>",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			svc := pick(a)
			rec, err := resolve(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.Delete(ctx, rec.Meta().UID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s %s deleted\n", rec.Kind(), rec.Meta().UID)
			return nil
		}),
	}
}

func importCmd[T models.Record[T]](h *holder, pick func(*App) services.RecordService[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import records from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(ctx context.Context, a *App, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var recs []T
			if err := json.Unmarshal(data, &recs); err != nil {
				return fmt.Errorf("%w: %s: %w", common.ErrInvalidInput, args[0], err)
			}

			n, err := pick(a).Import(ctx, recs)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "imported %d records\n", n)
			return nil
		}),
	}
}

// resolve finds a live record by uid or by a unique uid prefix.
func resolve[T models.Record[T]](ctx context.Context, svc services.RecordService[T], ref string) (T, error) {
	var zero T

	rec, err := svc.Get(ctx, ref)
	if err == nil {
		return rec, nil
	}

	recs, lerr := svc.List(ctx)
	if lerr != nil {
		return zero, lerr
	}

	var found []T
	for _, r := range recs {
		if strings.HasPrefix(r.Meta().UID, ref) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%s %q: %w", zero.Kind(), ref, common.ErrNotFound)
	case 1:
		return found[0], nil
	}
	return zero, fmt.Errorf("%w: %q matches %d records", common.ErrInvalidInput, ref, len(found))
}

// parseTime accepts "now", "15:04" (today), "2006-01-02 15:04" and RFC 3339.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return now().Truncate(time.Second), nil
	}
	if t, err := time.ParseInLocation("15:04", s, time.Local); err == nil {
		n := now()
		return time.Date(n.Year(), n.Month(), n.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", common.ErrInvalidInput, s)
	}
	return t, nil
}

func formatRate(rate float64, currency string) string {
	if rate == 0 {
		return ""
	}
	return strings.TrimSpace(strconv.FormatFloat(rate, 'f', -1, 64) + " " + currency)
}
