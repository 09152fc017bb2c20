// Package services contains application services for the gophauth client.
// This file defines the authentication service: login, signup, logout,
// session restore and the password reset flow.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/metrics"
	"github.com/dmitrijs2005/gophauth/internal/sanitize"
)

// SessionKey holds the signed-in user as JSON.
const SessionKey = "@auth_user"

// User-facing failure messages.
const (
	MsgNoAccount     = "No account found with this email"
	MsgWrongPassword = "Incorrect password"
	MsgEmailTaken    = "An account with this email already exists"
	MsgGeneric       = "An error occurred. Please try again."
	MsgInvalidToken  = "Invalid or expired reset token"
)

// Error codes attached to infrastructure failures.
const (
	CodeStorage = "AUTH_STORAGE"
	CodeDecode  = "AUTH_DECODE"
	CodeHash    = "AUTH_HASH"
	CodeNotify  = "AUTH_NOTIFY"
)

// User is the session: who is signed in.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResult is the outcome of Login, Signup and ResetPassword. Error is
// empty on success.
type AuthResult struct {
	Success bool
	Error   string
}

func rejected(msg string) AuthResult { return AuthResult{Error: msg} }

var succeeded = AuthResult{Success: true}

// Account is a listed account without its password hash.
type Account struct {
	User
	Demo bool
}

// AuthService owns the credential store and the session key.
//
// Contract:
//   - Login/Signup never return Go errors: business failures and
//     infrastructure faults both come back in AuthResult.Error, the latter
//     as MsgGeneric after being logged.
//   - The session is written only after the credential write succeeded.
//   - RestoreSession never fails; unreadable state means "signed out".
type AuthService struct {
	repo     metadata.Repository
	store    *credentials.Store
	hasher   cryptox.Hasher
	log      logging.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time
	resetTTL time.Duration
}

// Option customizes an AuthService.
type Option func(*AuthService)

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *AuthService) { a.metrics = m }
}

// WithNotifier replaces the default log-only reset link delivery.
func WithNotifier(n Notifier) Option {
	return func(a *AuthService) { a.notifier = n }
}

// WithClock overrides time.Now for reset token expiry.
func WithClock(now func() time.Time) Option {
	return func(a *AuthService) { a.now = now }
}

// WithResetTTL sets how long a reset token stays valid.
func WithResetTTL(d time.Duration) Option {
	return func(a *AuthService) { a.resetTTL = d }
}

// NewAuthService constructs an AuthService over repo. New passwords are
// hashed with hasher; stored hashes of any supported scheme verify.
func NewAuthService(repo metadata.Repository, hasher cryptox.Hasher, log logging.Logger, opts ...Option) *AuthService {
	a := &AuthService{
		repo:     repo,
		store:    credentials.NewStore(repo, hasher, credentials.DefaultSeeds()),
		hasher:   hasher,
		log:      log,
		now:      time.Now,
		resetTTL: DefaultResetTTL,
	}
	for _, o := range opts {
		o(a)
	}
	if a.notifier == nil {
		a.notifier = NewLogNotifier(log)
	}
	return a
}

// Initialize hashes the demo accounts. Repeated calls are no-ops.
func (a *AuthService) Initialize(ctx context.Context) error {
	if err := a.store.Initialize(ctx); err != nil {
		return oops.Code(CodeHash).Wrapf(err, "initialize credential store")
	}
	return nil
}

// RestoreSession returns the persisted session user, or nil when there is
// none or it cannot be read.
func (a *AuthService) RestoreSession(ctx context.Context) *User {
	started := time.Now()

	raw, err := a.repo.Get(ctx, SessionKey)
	if err != nil {
		a.log.Warn(ctx, "restore session: read failed", "code", CodeStorage, "error", err)
		a.metrics.Observe(metrics.OpRestore, metrics.ResultError, started)
		return nil
	}
	if len(raw) == 0 {
		a.metrics.Observe(metrics.OpRestore, metrics.ResultRejected, started)
		return nil
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil || u.Email == "" {
		a.log.Warn(ctx, "restore session: malformed value", "code", CodeDecode, "error", err)
		a.metrics.Observe(metrics.OpRestore, metrics.ResultError, started)
		return nil
	}

	a.metrics.Observe(metrics.OpRestore, metrics.ResultSuccess, started)
	return &u
}

// Login checks the password of an existing account and starts a session.
func (a *AuthService) Login(ctx context.Context, email, password string) AuthResult {
	started := time.Now()
	email = sanitize.NormalizeEmail(email)

	res, err := a.login(ctx, email, password)
	return a.finish(ctx, metrics.OpLogin, started, res, err, "email", email)
}

func (a *AuthService) login(ctx context.Context, email, password string) (AuthResult, error) {
	if err := a.Initialize(ctx); err != nil {
		return AuthResult{}, err
	}

	rec, err := a.store.Lookup(ctx, email)
	if err != nil {
		return AuthResult{}, storeError(err)
	}
	if rec == nil {
		return rejected(MsgNoAccount), nil
	}

	ok, err := cryptox.VerifyAny(password, rec.PasswordHash)
	if err != nil {
		return AuthResult{}, oops.Code(CodeHash).With("email", email).Wrap(err)
	}
	if !ok {
		return rejected(MsgWrongPassword), nil
	}

	if err := a.saveSession(ctx, User{Name: rec.Name, Email: rec.Email}); err != nil {
		return AuthResult{}, err
	}
	return succeeded, nil
}

// Signup creates an account and starts a session for it. The name is
// sanitized and the email normalized before anything is stored.
func (a *AuthService) Signup(ctx context.Context, name, email, password string) AuthResult {
	started := time.Now()
	email = sanitize.NormalizeEmail(email)

	res, err := a.signup(ctx, sanitize.SanitizeName(name), email, password)
	return a.finish(ctx, metrics.OpSignup, started, res, err, "email", email)
}

func (a *AuthService) signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	if err := a.Initialize(ctx); err != nil {
		return AuthResult{}, err
	}

	existing, err := a.store.Lookup(ctx, email)
	if err != nil {
		return AuthResult{}, storeError(err)
	}
	if existing != nil {
		return rejected(MsgEmailTaken), nil
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, oops.Code(CodeHash).With("email", email).Wrap(err)
	}

	err = a.store.Insert(ctx, credentials.UserRecord{Name: name, Email: email, PasswordHash: hash})
	if errors.Is(err, credentials.ErrAlreadyExists) {
		return rejected(MsgEmailTaken), nil
	}
	if err != nil {
		return AuthResult{}, storeError(err)
	}

	if err := a.saveSession(ctx, User{Name: name, Email: email}); err != nil {
		return AuthResult{}, err
	}
	return succeeded, nil
}

// Logout removes the session. Logging out twice is not an error.
func (a *AuthService) Logout(ctx context.Context) error {
	started := time.Now()

	if err := a.repo.Delete(ctx, SessionKey); err != nil {
		a.metrics.Observe(metrics.OpLogout, metrics.ResultError, started)
		err = oops.Code(CodeStorage).Wrapf(err, "logout")
		a.log.Error(ctx, "logout failed", "code", CodeStorage, "error", err)
		return err
	}

	a.metrics.Observe(metrics.OpLogout, metrics.ResultSuccess, started)
	a.log.Debug(ctx, "session cleared")
	return nil
}

// IsDemo reports whether email belongs to a demo account.
func (a *AuthService) IsDemo(email string) bool {
	return a.store.IsDemo(email)
}

// Accounts lists every known account, demo accounts included.
func (a *AuthService) Accounts(ctx context.Context) ([]Account, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	recs, err := a.store.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	out := make([]Account, 0, len(recs))
	for _, r := range recs {
		out = append(out, Account{
			User: User{Name: r.Name, Email: r.Email},
			Demo: a.store.IsDemo(r.Email),
		})
	}
	return out, nil
}

func (a *AuthService) saveSession(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return oops.Code(CodeDecode).Wrap(err)
	}
	if err := a.repo.Set(ctx, SessionKey, raw); err != nil {
		return oops.Code(CodeStorage).With("key", SessionKey).Wrap(err)
	}
	return nil
}

// finish logs and counts an operation and hides infrastructure faults
// behind MsgGeneric.
func (a *AuthService) finish(ctx context.Context, op string, started time.Time, res AuthResult, err error, args ...any) AuthResult {
	if err != nil {
		a.metrics.Observe(op, metrics.ResultError, started)
		args = append(args, "code", errorCode(err), "error", err)
		a.log.Error(ctx, op+" failed", args...)
		return rejected(MsgGeneric)
	}

	if !res.Success {
		a.metrics.Observe(op, metrics.ResultRejected, started)
		a.log.Info(ctx, op+" rejected", append(args, "reason", res.Error)...)
		return res
	}

	a.metrics.Observe(op, metrics.ResultSuccess, started)
	a.log.Info(ctx, op+" succeeded", args...)
	return res
}

func storeError(err error) error {
	if errors.Is(err, credentials.ErrMalformedValue) {
		return oops.Code(CodeDecode).With("key", credentials.UsersKey).Wrap(err)
	}
	return oops.Code(CodeStorage).With("key", credentials.UsersKey).Wrap(err)
}

func errorCode(err error) any {
	if o, ok := oops.AsOops(err); ok {
		return o.Code()
	}
	return CodeStorage
}
