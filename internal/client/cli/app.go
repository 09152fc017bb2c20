package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/client/storage"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/metrics"
)

// App is the REPL front end.
type App struct {
	store   *storage.Store
	auth    *services.AuthService
	themes  *services.ThemeService
	state   *session.State
	metrics *metrics.Metrics
	log     logging.Logger

	prompter Prompter
	in       *bufio.Reader
	out      io.Writer
	color    bool
	theme    services.Theme
	now      func() time.Time
}

// NewApp opens the configured store and builds the services on top of it.
// The caller must Close the App.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	hasher, err := cryptox.NewHasher(c.Hasher)
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, c.Store, c.DataDir, log)
	if err != nil {
		log.Error(ctx, "error opening store", "kind", c.Store, "error", err)
		return nil, err
	}

	in := bufio.NewReader(os.Stdin)
	a := newApp(st, hasher, log, in, os.Stdout, newPrompter(in, os.Stdout, int(os.Stdin.Fd())))
	a.color = isTerminal(int(os.Stdout.Fd())) && os.Getenv("TERM") != "dumb"
	return a, nil
}

func newApp(st *storage.Store, hasher cryptox.Hasher, log logging.Logger, in *bufio.Reader, out io.Writer, p Prompter) *App {
	m := metrics.New()
	auth := services.NewAuthService(st.Repo, hasher, log, services.WithMetrics(m))

	return &App{
		store:    st,
		auth:     auth,
		themes:   services.NewThemeService(st.Repo, log),
		state:    session.New(auth),
		metrics:  m,
		log:      log,
		prompter: p,
		in:       in,
		out:      out,
		theme:    services.ThemeLight,
		now:      time.Now,
	}
}

// Run restores the session and runs the REPL until exit.
func (a *App) Run(ctx context.Context) {
	if err := a.state.Restore(ctx); err != nil {
		a.log.Warn(ctx, "restore session", "error", err)
	}
	a.theme = a.themes.Load(ctx)

	fmt.Fprintln(a.out, "Welcome to gauth (type 'help' for commands)")
	if snap := a.state.Snapshot(); snap.LoggedIn() {
		a.notify(noticeInfo, fmt.Sprintf("Signed in as %s", snap.User.Email))
	}

	runREPL(ctx, a, a.status, a.in, a.out)
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) isLoggedIn() bool {
	return a.state.Snapshot().LoggedIn()
}

func (a *App) status() string {
	snap := a.state.Snapshot()
	if !snap.LoggedIn() {
		return ""
	}
	if snap.IsDemo {
		return fmt.Sprintf("(%s demo)", snap.User.Email)
	}
	return fmt.Sprintf("(%s)", snap.User.Email)
}
