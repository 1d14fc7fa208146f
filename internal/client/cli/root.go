package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/timekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/spf13/cobra"
)

// holder opens the App lazily, the first time a command needs it, so that
// help and flag errors never touch the local store.
type holder struct {
	flags  *config.Flags
	app    *App
	in     io.Reader
	out    io.Writer
	logOut io.Writer
}

type runFunc func(ctx context.Context, a *App, args []string) error

func (h *holder) open(ctx context.Context) (*App, error) {
	if h.app != nil {
		return h.app, nil
	}
	cfg, err := config.Load(h.flags)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(ctx, cfg, h.in, h.out, h.logOut)
	if err != nil {
		return nil, err
	}
	h.app = app
	return app, nil
}

// run adapts fn to cobra, opening the App first and flushing pending
// changes afterwards.
func (h *holder) run(fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := h.open(ctx)
		if err != nil {
			return err
		}
		err = fn(ctx, a, args)
		a.flush(ctx)
		return err
	}
}

// Execute runs the timekeeper command line with args and closes the App
// when done.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	h := &holder{in: in, out: out, logOut: errOut}

	root := newRootCmd(h)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if h.app != nil {
		err = errors.Join(err, h.app.Close())
	}
	return err
}

func newRootCmd(h *holder) *cobra.Command {
	root := &cobra.Command{
		Use:           "timekeeper",
		Short:         "Time tracking with end-to-end encrypted sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: "Track tasks, shortcuts and todos locally and keep them in sync\n" +
			"across your devices. The server only ever sees ciphertext.\n\n" +
			"Example:\n" +
			"  timekeeper login --email me@example.com\n" +
			"  timekeeper task add write report --project docs",
	}
	h.flags = config.BindFlags(root.PersistentFlags())

	addCommands(root, h)
	root.AddCommand(shellCmd(h), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// newShellTree is the command tree available inside the shell. It shares
// the already opened App.
func newShellTree(h *holder) *cobra.Command {
	root := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	addCommands(root, h)
	return root
}

func addCommands(root *cobra.Command, h *holder) {
	root.AddCommand(loginCmd(h), logoutCmd(h), statusCmd(h), syncCmd(h))
	root.AddCommand(taskCmd(h), shortcutCmd(h), todoCmd(h))
}
