package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execFunc runs one parsed command line.
type execFunc func(ctx context.Context, args []string) error

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is done. Every line is split on whitespace and handed to exec; errors
// are printed and the loop goes on. The prompt carries statusFn's text.
func runREPL(ctx context.Context, exec execFunc, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "tk%s> ", statusFn())

		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				fmt.Fprintln(w)
				return
			}
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		case "shell":
			fmt.Fprintln(w, "Already in the shell")

		default:
			if xerr := exec(ctx, parts); xerr != nil {
				fmt.Fprintln(w, "Error:", xerr)
			}
		}

		if err != nil {
			return
		}
	}
}
