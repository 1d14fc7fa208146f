package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls [][]string
	err   error
}

func (f *fakeExec) exec(_ context.Context, args []string) error {
	f.calls = append(f.calls, args)
	return f.err
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"task add write report",
		"",
		"   ",
		"sync",
		"shell",
		"exit",
		"never reached",
	}, "\n")

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec.exec, func() string { return " (status)" }, bufio.NewReader(strings.NewReader(input)), &out)

	assert.Equal(t, [][]string{{"task", "add", "write", "report"}, {"sync"}}, exec.calls)
	assert.Contains(t, out.String(), "tk (status)> ")
	assert.Contains(t, out.String(), "Already in the shell")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	exec := &fakeExec{err: errors.New("boom")}
	var out bytes.Buffer
	runREPL(context.Background(), exec.exec, func() string { return "" }, bufio.NewReader(strings.NewReader("a\nb\nquit\n")), &out)

	assert.Len(t, exec.calls, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: boom"))
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec.exec, func() string { return "" }, bufio.NewReader(strings.NewReader("status")), &out)

	assert.Equal(t, [][]string{{"status"}}, exec.calls, "a final line without newline still runs")
	assert.NotContains(t, out.String(), "Bye!")
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, exec.exec, func() string { return "" }, bufio.NewReader(strings.NewReader("sync\n")), &out)

	assert.Empty(t, exec.calls)
}
