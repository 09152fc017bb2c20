package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// printlnFn is a test seam for REPL output that is not tied to an App.
var printlnFn = fmt.Fprintln

var errExit = errors.New("exit")

const (
	annotationAccess = "access"
	accessGuest      = "guest"
	accessUser       = "user"
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Accounts(ctx context.Context) error
	Strength(ctx context.Context, args []string) error
	Forgot(ctx context.Context) error
	Reset(ctx context.Context) error
	ToggleTheme(ctx context.Context) error
	Stats(ctx context.Context) error
}

// runREPL reads one line at a time from in and dispatches it through
// newRootCmd. It returns on EOF or after exit/quit.
//
// Errors returned by handlers are printed and the loop goes on; handlers
// report business failures themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if s := statusFn(); s != "" {
			fmt.Fprintf(out, "gauth %s> ", s)
		} else {
			fmt.Fprint(out, "gauth> ")
		}

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			printlnFn(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := newRootCmd(a, out)
		cmd.SetArgs(parts)
		err = cmd.ExecuteContext(ctx)

		switch {
		case errors.Is(err, errExit):
			printlnFn(out, "Bye!")
			return
		case errors.Is(err, errSkip):
		case errors.Is(err, ErrAborted):
			printlnFn(out, "Cancelled.")
		case err != nil:
			printlnFn(out, "Error:", err)
		}
	}
}

// newRootCmd builds the command tree for a single REPL line.
func newRootCmd(a execIface, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "gauth",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				printlnFn(out, "Unknown command:", args[0])
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Annotations[annotationAccess] {
			case accessUser:
				if !a.isLoggedIn() {
					printlnFn(out, "Sign in first (try 'login').")
					return errSkip
				}
			case accessGuest:
				if a.isLoggedIn() {
					printlnFn(out, "Already signed in; 'logout' first.")
					return errSkip
				}
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show available commands",
		Run: func(cmd *cobra.Command, args []string) {
			printlnFn(out, helpText(a.isLoggedIn()))
		},
	})

	simple := func(use, short, access string, fn func(context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:         use,
			Short:       short,
			Args:        cobra.NoArgs,
			Annotations: map[string]string{annotationAccess: access},
			RunE: func(cmd *cobra.Command, args []string) error {
				return fn(cmd.Context())
			},
		}
	}

	root.AddCommand(
		simple("login", "Sign in", accessGuest, a.Login),
		simple("signup", "Create an account", accessGuest, a.Signup),
		simple("forgot", "Request a password reset", accessGuest, a.Forgot),
		simple("reset", "Set a new password with a reset token", accessGuest, a.Reset),
		simple("logout", "Sign out", accessUser, a.Logout),
		simple("whoami", "Show the signed-in profile", accessUser, a.WhoAmI),
		simple("accounts", "List known accounts", accessUser, a.Accounts),
		simple("theme", "Toggle light/dark theme", "", a.ToggleTheme),
		simple("stats", "Show auth counters", "", a.Stats),
		&cobra.Command{
			Use:   "strength [password]",
			Short: "Rate a password",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.Strength(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "Leave the program",
			Args:    cobra.ArbitraryArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return errExit
			},
		},
	)

	return root
}

// errSkip stops a command whose access check failed. The message has
// already been printed.
var errSkip = errors.New("skip")

func helpText(loggedIn bool) string {
	if loggedIn {
		return "Available commands: whoami, logout, accounts, strength, theme, stats, exit"
	}
	return "Available commands: login, signup, forgot, reset, strength, theme, stats, exit"
}
