package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/validation"
)

const (
	msgBusy        = "Please wait, another request is in progress"
	msgTokenNeeded = "Reset token is required"
)

// Login prompts for credentials, validates them and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := a.prompter.Prompt("Email", false, validator(validation.ValidateEmail))
	if err != nil {
		return err
	}
	password, err := a.prompter.Prompt("Password", true, validator(func(s string) string {
		return validation.ValidatePassword(s, false)
	}))
	if err != nil {
		return err
	}

	if errs := validation.ValidateLoginForm(email, password); validation.HasErrors(errs) {
		a.printFieldErrors(errs)
		return nil
	}

	res, err := a.state.Login(ctx, email, password)
	return a.afterAuth(res, err, "Welcome back")
}

// Signup prompts for name, email and password, shows the password strength
// and creates the account.
func (a *App) Signup(ctx context.Context) error {
	name, err := a.prompter.Prompt("Name", false, validator(validation.ValidateName))
	if err != nil {
		return err
	}
	email, err := a.prompter.Prompt("Email", false, validator(validation.ValidateEmail))
	if err != nil {
		return err
	}
	password, err := a.prompter.Prompt("Password", true, validator(func(s string) string {
		return validation.ValidatePassword(s, true)
	}))
	if err != nil {
		return err
	}
	if s := validation.GetPasswordStrength(password); s.Level > 0 {
		a.notify(noticeInfo, "Password strength: "+strengthBar(s))
	}

	if errs := validation.ValidateSignupForm(name, email, password); validation.HasErrors(errs) {
		a.printFieldErrors(errs)
		return nil
	}

	res, err := a.state.Signup(ctx, name, email, password)
	return a.afterAuth(res, err, "Account created. Welcome")
}

func (a *App) afterAuth(res services.AuthResult, err error, greeting string) error {
	if errors.Is(err, session.ErrBusy) {
		a.notify(noticeInfo, msgBusy)
		return nil
	}
	if err != nil {
		return err
	}
	if !res.Success {
		a.notify(noticeError, res.Error)
		return nil
	}

	snap := a.state.Snapshot()
	if snap.User == nil {
		a.notify(noticeError, services.MsgGeneric)
		return nil
	}
	msg := fmt.Sprintf("%s, %s!", greeting, firstName(snap.User.Name))
	if snap.IsDemo {
		msg += " (demo account)"
	}
	a.notify(noticeSuccess, msg)
	return nil
}

// Logout ends the session.
func (a *App) Logout(ctx context.Context) error {
	err := a.state.Logout(ctx)
	if errors.Is(err, session.ErrBusy) {
		a.notify(noticeInfo, msgBusy)
		return nil
	}
	if err != nil {
		a.notify(noticeError, services.MsgGeneric)
		return nil
	}
	a.notify(noticeSuccess, "Signed out")
	return nil
}

// WhoAmI prints the profile of the signed-in user.
func (a *App) WhoAmI(ctx context.Context) error {
	snap := a.state.Snapshot()
	if snap.User == nil {
		return nil
	}

	kind := "NEW"
	if snap.IsDemo {
		kind = "DEMO"
	}

	fmt.Fprintf(a.out, "HELLO, %s\n", strings.ToUpper(firstName(snap.User.Name)))
	printTable(a.out, []string{"Name", "Email", "Account", "Local time"}, [][]string{
		{snap.User.Name, snap.User.Email, kind, a.now().Format("15:04:05")},
	})
	return nil
}

// Accounts lists every account the store knows, marking the current one.
func (a *App) Accounts(ctx context.Context) error {
	accounts, err := a.auth.Accounts(ctx)
	if err != nil {
		a.notify(noticeError, services.MsgGeneric)
		return nil
	}

	current := ""
	if snap := a.state.Snapshot(); snap.User != nil {
		current = snap.User.Email
	}

	rows := make([][]string, 0, len(accounts))
	for _, acc := range accounts {
		kind := "NEW"
		if acc.Demo {
			kind = "DEMO"
		}
		mark := ""
		if acc.Email == current {
			mark = "*"
		}
		rows = append(rows, []string{mark, acc.Name, acc.Email, kind})
	}
	printTable(a.out, []string{"", "Name", "Email", "Account"}, rows)
	return nil
}

// Strength rates the password given as argument, or prompts for one.
func (a *App) Strength(ctx context.Context, args []string) error {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		var err error
		password, err = a.prompter.Prompt("Password", true, nil)
		if err != nil {
			return err
		}
	}

	s := validation.GetPasswordStrength(password)
	if s.Level == 0 {
		a.notify(noticeInfo, "Nothing to rate")
		return nil
	}
	a.notify(noticeInfo, strengthBar(s))
	return nil
}

// Forgot requests a password reset link for an email.
func (a *App) Forgot(ctx context.Context) error {
	email, err := a.prompter.Prompt("Email", false, validator(validation.ValidateEmail))
	if err != nil {
		return err
	}
	if errs := validation.ValidateResetForm(email); validation.HasErrors(errs) {
		a.printFieldErrors(errs)
		return nil
	}

	if err := a.auth.RequestPasswordReset(ctx, email); err != nil {
		a.notify(noticeError, services.MsgGeneric)
		return nil
	}
	a.notify(noticeSuccess, "Reset link sent to "+email)
	return nil
}

// Reset sets a new password using a token from Forgot.
func (a *App) Reset(ctx context.Context) error {
	token, err := a.prompter.Prompt("Reset token", false, func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(msgTokenNeeded)
		}
		return nil
	})
	if err != nil {
		return err
	}
	password, err := a.prompter.Prompt("New password", true, validator(func(s string) string {
		return validation.ValidatePassword(s, true)
	}))
	if err != nil {
		return err
	}

	errs := validation.FieldErrors{}
	if strings.TrimSpace(token) == "" {
		errs["token"] = msgTokenNeeded
	}
	if msg := validation.ValidatePassword(password, true); msg != "" {
		errs[validation.FieldPassword] = msg
	}
	if validation.HasErrors(errs) {
		a.printFieldErrors(errs)
		return nil
	}

	res := a.auth.ResetPassword(ctx, strings.TrimSpace(token), password)
	if !res.Success {
		a.notify(noticeError, res.Error)
		return nil
	}
	a.notify(noticeSuccess, "Password updated. You can now log in.")
	return nil
}

// ToggleTheme flips between the light and dark palettes.
func (a *App) ToggleTheme(ctx context.Context) error {
	next, err := a.themes.Toggle(ctx)
	a.theme = next
	if err != nil {
		a.notify(noticeError, services.MsgGeneric)
		return nil
	}
	a.notify(noticeInfo, "Theme: "+string(next))
	return nil
}

// Stats prints auth counters for this process.
func (a *App) Stats(ctx context.Context) error {
	counters, err := a.metrics.Counters()
	if err != nil {
		return err
	}
	if len(counters) == 0 {
		a.notify(noticeInfo, "No activity yet")
		return nil
	}

	rows := make([][]string, 0, len(counters))
	for _, c := range counters {
		rows = append(rows, []string{c.Operation, c.Result, strconv.FormatFloat(c.Value, 'f', -1, 64)})
	}
	printTable(a.out, []string{"Operation", "Result", "Count"}, rows)
	return nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "User"
}

// strengthBar renders a strength as "■■□ MEDIUM".
func strengthBar(s validation.PasswordStrength) string {
	const levels = 3
	return strings.Repeat("■", s.Level) + strings.Repeat("□", levels-s.Level) + " " + s.Label
}
