package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/storage"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// scriptedPrompter отдаёт заранее заданные ответы по порядку.
type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (p *scriptedPrompter) Prompt(label string, _ bool, _ func(string) error) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", ErrAborted
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

// captureNotifier keeps the last reset token.
type captureNotifier struct{ token string }

func (n *captureNotifier) SendResetLink(_ context.Context, _, _, token string) error {
	n.token = token
	return nil
}

func newTestApp(t *testing.T, answers ...string) (*App, *scriptedPrompter, *bytes.Buffer) {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.KindMemory, "", logging.NewNop())
	require.NoError(t, err)

	p := &scriptedPrompter{answers: answers}
	var out bytes.Buffer
	a := newApp(st, cryptox.SHA256Hasher{}, logging.NewNop(), bufio.NewReader(strings.NewReader("")), &out, p)
	a.now = func() time.Time { return time.Date(2025, 3, 4, 9, 8, 7, 0, time.UTC) }
	t.Cleanup(func() { _ = a.Close() })
	return a, p, &out
}

func TestApp_LoginDemoAndWhoAmI(t *testing.T) {
	a, _, out := newTestApp(t, "john@example.com", "Password123")
	ctx := context.Background()

	require.NoError(t, a.Login(ctx))
	assert.Contains(t, out.String(), "✓ Welcome back, John! (demo account)")
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(john@example.com demo)", a.status())

	out.Reset()
	require.NoError(t, a.WhoAmI(ctx))
	assert.Contains(t, out.String(), "HELLO, JOHN")
	assert.Contains(t, out.String(), "john@example.com")
	assert.Contains(t, out.String(), "DEMO")
	assert.Contains(t, out.String(), "09:08:07")
}

func TestApp_LoginValidationBlocksService(t *testing.T) {
	a, _, out := newTestApp(t, "notanemail", "")
	require.NoError(t, a.Login(context.Background()))

	assert.Contains(t, out.String(), "✗ email: Invalid email format")
	assert.Contains(t, out.String(), "✗ password: Password is required")
	assert.False(t, a.isLoggedIn())

	counters, err := a.metrics.Counters()
	require.NoError(t, err)
	assert.Empty(t, counters, "service must not be called")
}

func TestApp_LoginWrongPassword(t *testing.T) {
	a, _, out := newTestApp(t, "john@example.com", "wrongpass")
	require.NoError(t, a.Login(context.Background()))
	assert.Contains(t, out.String(), "✗ "+services.MsgWrongPassword)
	assert.False(t, a.isLoggedIn())
}

func TestApp_SignupLogoutLogin(t *testing.T) {
	a, p, out := newTestApp(t,
		"Alice Liddell", "Alice@Example.com", "Wonder1and",
		"alice@example.com", "Wonder1and",
	)
	ctx := context.Background()

	require.NoError(t, a.Signup(ctx))
	assert.Equal(t, []string{"Name", "Email", "Password"}, p.labels)
	assert.Contains(t, out.String(), "i Password strength: ■■■ STRONG")
	assert.Contains(t, out.String(), "✓ Account created. Welcome, Alice!")
	assert.Equal(t, "(alice@example.com)", a.status())

	require.NoError(t, a.Logout(ctx))
	assert.Contains(t, out.String(), "✓ Signed out")
	assert.False(t, a.isLoggedIn())

	require.NoError(t, a.Login(ctx))
	assert.True(t, a.isLoggedIn())

	out.Reset()
	require.NoError(t, a.Accounts(ctx))
	table := out.String()
	assert.Contains(t, table, "alice@example.com")
	assert.Contains(t, table, "jane@example.com")
	assert.Contains(t, table, "*")
}

func TestApp_SignupSeedEmail(t *testing.T) {
	a, _, out := newTestApp(t, "Jane", "jane@example.com", "secret1")
	require.NoError(t, a.Signup(context.Background()))
	assert.Contains(t, out.String(), "✗ "+services.MsgEmailTaken)
}

func TestApp_SignupShortPassword(t *testing.T) {
	a, _, out := newTestApp(t, "", "bob@example.com", "abc")
	require.NoError(t, a.Signup(context.Background()))
	assert.Contains(t, out.String(), "✗ name: Name is required")
	assert.Contains(t, out.String(), "✗ password: Minimum 6 characters")
	assert.False(t, a.isLoggedIn())
}

func TestApp_PromptAborted(t *testing.T) {
	a, _, _ := newTestApp(t, "john@example.com")
	assert.ErrorIs(t, a.Login(context.Background()), ErrAborted)
}

func TestApp_ForgotAndReset(t *testing.T) {
	a, p, out := newTestApp(t, "Carol", "carol@example.com", "oldpass1")
	ctx := context.Background()
	n := &captureNotifier{}
	a.auth = services.NewAuthService(a.store.Repo, cryptox.SHA256Hasher{}, logging.NewNop(),
		services.WithNotifier(n), services.WithMetrics(a.metrics))

	require.NoError(t, a.Signup(ctx))
	require.NoError(t, a.Logout(ctx))

	p.answers = []string{"carol@example.com"}
	require.NoError(t, a.Forgot(ctx))
	assert.Contains(t, out.String(), "✓ Reset link sent to carol@example.com")
	require.NotEmpty(t, n.token)

	p.answers = []string{"bogus", "newpass1"}
	require.NoError(t, a.Reset(ctx))
	assert.Contains(t, out.String(), "✗ "+services.MsgInvalidToken)

	p.answers = []string{n.token, "newpass1"}
	require.NoError(t, a.Reset(ctx))
	assert.Contains(t, out.String(), "✓ Password updated. You can now log in.")

	assert.True(t, a.auth.Login(ctx, "carol@example.com", "newpass1").Success)
}

func TestApp_ForgotUnknownEmailStillConfirms(t *testing.T) {
	a, _, out := newTestApp(t, "nobody@example.com")
	require.NoError(t, a.Forgot(context.Background()))
	assert.Contains(t, out.String(), "✓ Reset link sent to nobody@example.com")
}

func TestApp_ResetValidation(t *testing.T) {
	a, _, out := newTestApp(t, " ", "123")
	require.NoError(t, a.Reset(context.Background()))
	assert.Contains(t, out.String(), "✗ password: Minimum 6 characters")
	assert.Contains(t, out.String(), "✗ token: Reset token is required")
}

func TestApp_StrengthThemeStats(t *testing.T) {
	a, _, out := newTestApp(t, "aaaaaa")
	ctx := context.Background()

	require.NoError(t, a.Strength(ctx, []string{"Aaaaaaaa"}))
	assert.Contains(t, out.String(), "i ■■□ MEDIUM")

	require.NoError(t, a.Strength(ctx, nil))
	assert.Contains(t, out.String(), "i ■□□ WEAK")

	require.NoError(t, a.Strength(ctx, []string{""}))
	assert.Contains(t, out.String(), "Nothing to rate")

	require.NoError(t, a.ToggleTheme(ctx))
	assert.Contains(t, out.String(), "Theme: dark")
	assert.Equal(t, services.ThemeDark, a.theme)

	require.NoError(t, a.Stats(ctx))
	assert.Contains(t, out.String(), "No activity yet")

	a.auth.Login(ctx, "jane@example.com", "Password123")
	out.Reset()
	require.NoError(t, a.Stats(ctx))
	assert.Contains(t, out.String(), "login")
	assert.Contains(t, out.String(), "success")
}

func TestApp_NotifyColors(t *testing.T) {
	a, _, out := newTestApp(t)
	a.color = true
	a.theme = services.ThemeDark
	a.notify(noticeError, "bad")
	assert.Equal(t, "\x1b[91m✗ bad\x1b[0m\n", out.String())
}

func TestApp_RunRestoresSession(t *testing.T) {
	a, _, out := newTestApp(t)
	ctx := context.Background()
	require.True(t, a.auth.Login(ctx, "jane@example.com", "Password123").Success)

	a.in = bufio.NewReader(strings.NewReader("whoami\nexit\n"))
	a.Run(ctx)

	s := out.String()
	assert.Contains(t, s, "i Signed in as jane@example.com")
	assert.Contains(t, s, "gauth (jane@example.com demo)> ")
	assert.Contains(t, s, "HELLO, JANE")
	assert.Contains(t, s, "Bye!")
}
