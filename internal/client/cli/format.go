package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
)

const timeLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "running"
	}
	return d.Truncate(time.Second).String()
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// summarize renders a sync outcome on one line.
func summarize(out syncer.Outcome) string {
	var b strings.Builder
	if out.FullSync {
		b.WriteString("full sync: ")
	} else {
		b.WriteString("sync: ")
	}
	fmt.Fprintf(&b, "sent %d, received %d", out.Sent, out.Received)
	if n := out.Inserted + out.Updated; n > 0 {
		fmt.Fprintf(&b, ", applied %d", n)
	}
	if out.Skipped > 0 {
		fmt.Fprintf(&b, ", %d unreadable", out.Skipped)
	}
	if out.Failed > 0 {
		fmt.Fprintf(&b, ", %d not stored", out.Failed)
	}
	if out.Repaired > 0 {
		fmt.Fprintf(&b, ", %d re-sent", out.Repaired)
	}
	return b.String()
}
