package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/metrics"
	"github.com/dmitrijs2005/gophauth/internal/sanitize"
)

// ResetsKey holds outstanding password reset requests.
const ResetsKey = "@password_resets"

// DefaultResetTTL is how long a reset token stays valid.
const DefaultResetTTL = time.Hour

// Notifier delivers a password reset token to the account owner.
type Notifier interface {
	SendResetLink(ctx context.Context, email, requestID, token string) error
}

// LogNotifier "delivers" reset links by logging them at debug level, so the
// reset flow needs -log-level debug to see the token. There is no mail
// transport.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendResetLink(ctx context.Context, email, requestID, token string) error {
	n.log.Debug(ctx, "reset link", "email", email, "request_id", requestID, "token", token)
	return nil
}

type resetRequest struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"tokenHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestPasswordReset issues a reset token for a user-created account and
// hands it to the Notifier. Unknown and demo emails are accepted silently
// so callers cannot tell which emails are registered.
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	started := time.Now()
	email = sanitize.NormalizeEmail(email)

	issued, err := a.requestReset(ctx, email)
	if err != nil {
		a.metrics.Observe(metrics.OpResetRequest, metrics.ResultError, started)
		a.log.Error(ctx, "reset request failed", "email", email, "code", errorCode(err), "error", err)
		return err
	}

	result := metrics.ResultSuccess
	if !issued {
		result = metrics.ResultRejected
	}
	a.metrics.Observe(metrics.OpResetRequest, result, started)
	a.log.Debug(ctx, "reset requested", "email", email, "issued", issued)
	return nil
}

func (a *AuthService) requestReset(ctx context.Context, email string) (bool, error) {
	if a.store.IsDemo(email) {
		return false, nil
	}
	if err := a.Initialize(ctx); err != nil {
		return false, err
	}

	rec, err := a.store.Lookup(ctx, email)
	if err != nil {
		return false, storeError(err)
	}
	if rec == nil {
		return false, nil
	}

	token, digest, err := cryptox.GenerateToken()
	if err != nil {
		return false, oops.Code(CodeHash).Wrapf(err, "generate reset token")
	}

	resets, err := a.loadResets(ctx)
	if err != nil {
		return false, err
	}
	a.pruneResets(resets)

	req := resetRequest{
		ID:        uuid.NewString(),
		TokenHash: digest,
		ExpiresAt: a.now().Add(a.resetTTL).UTC(),
	}
	// a new request replaces an outstanding one
	resets[email] = req

	if err := a.saveResets(ctx, resets); err != nil {
		return false, err
	}

	if err := a.notifier.SendResetLink(ctx, email, req.ID, token); err != nil {
		return false, oops.Code(CodeNotify).With("request_id", req.ID).Wrap(err)
	}
	return true, nil
}

// ResetPassword sets a new password for the account the token was issued
// for and consumes the token. It does not start a session.
func (a *AuthService) ResetPassword(ctx context.Context, token, newPassword string) AuthResult {
	started := time.Now()
	res, email, err := a.resetPassword(ctx, token, newPassword)
	return a.finish(ctx, metrics.OpResetPassword, started, res, err, "email", email)
}

func (a *AuthService) resetPassword(ctx context.Context, token, newPassword string) (AuthResult, string, error) {
	resets, err := a.loadResets(ctx)
	if err != nil {
		return AuthResult{}, "", err
	}
	pruned := a.pruneResets(resets)

	email := ""
	for e, r := range resets {
		if cryptox.VerifyToken(token, r.TokenHash) {
			email = e
			break
		}
	}
	if email == "" {
		if pruned {
			if err := a.saveResets(ctx, resets); err != nil {
				return AuthResult{}, "", err
			}
		}
		return rejected(MsgInvalidToken), "", nil
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return AuthResult{}, email, oops.Code(CodeHash).With("email", email).Wrap(err)
	}

	err = a.store.UpdatePasswordHash(ctx, email, hash)
	switch {
	case errors.Is(err, credentials.ErrNotFound), errors.Is(err, credentials.ErrSeedImmutable):
		delete(resets, email)
		if err := a.saveResets(ctx, resets); err != nil {
			return AuthResult{}, email, err
		}
		return rejected(MsgInvalidToken), email, nil
	case err != nil:
		return AuthResult{}, email, storeError(err)
	}

	delete(resets, email)
	if err := a.saveResets(ctx, resets); err != nil {
		return AuthResult{}, email, err
	}
	return succeeded, email, nil
}

// pruneResets drops expired requests and reports whether any were dropped.
func (a *AuthService) pruneResets(resets map[string]resetRequest) bool {
	now := a.now()
	pruned := false
	for e, r := range resets {
		if !now.Before(r.ExpiresAt) {
			delete(resets, e)
			pruned = true
		}
	}
	return pruned
}

func (a *AuthService) loadResets(ctx context.Context) (map[string]resetRequest, error) {
	raw, err := a.repo.Get(ctx, ResetsKey)
	if err != nil {
		return nil, oops.Code(CodeStorage).With("key", ResetsKey).Wrap(err)
	}

	resets := make(map[string]resetRequest)
	if len(raw) == 0 {
		return resets, nil
	}
	if err := json.Unmarshal(raw, &resets); err != nil {
		return nil, oops.Code(CodeDecode).With("key", ResetsKey).Wrap(err)
	}
	if resets == nil {
		return nil, oops.Code(CodeDecode).With("key", ResetsKey).Errorf("stored value is null")
	}
	return resets, nil
}

func (a *AuthService) saveResets(ctx context.Context, resets map[string]resetRequest) error {
	if len(resets) == 0 {
		if err := a.repo.Delete(ctx, ResetsKey); err != nil {
			return oops.Code(CodeStorage).With("key", ResetsKey).Wrap(err)
		}
		return nil
	}

	raw, err := json.Marshal(resets)
	if err != nil {
		return oops.Code(CodeDecode).Wrap(err)
	}
	if err := a.repo.Set(ctx, ResetsKey, raw); err != nil {
		return oops.Code(CodeStorage).With("key", ResetsKey).Wrap(err)
	}
	return nil
}
