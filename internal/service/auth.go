package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Skotchmaster/nz_walks/internal/config"
	"github.com/Skotchmaster/nz_walks/internal/hash"
	"github.com/Skotchmaster/nz_walks/internal/metrics"
	"github.com/Skotchmaster/nz_walks/internal/models"
	"github.com/Skotchmaster/nz_walks/internal/mykafka"
	"github.com/Skotchmaster/nz_walks/internal/repo"
	"github.com/Skotchmaster/nz_walks/internal/transport"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
	"github.com/Skotchmaster/nz_walks/pkg/tokens"
)

const minPasswordLength = 6

var selfAssignableRoles = []string{models.RoleReader, models.RoleWriter}

// tokenFingerprint identifies a refresh token in logs without exposing it.
func tokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return hash.Sha256Hex(token)[:12]
}

type AuthService struct {
	Repo    *repo.GormRepo
	Issuer  *tokens.Issuer
	Events  EventPublisher
	Metrics *metrics.Metrics
	// Now overrides the clock used for refresh expiry; nil means time.Now.
	Now func() time.Time
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	AccountID    string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// verify resolves the account behind email and password. Unknown email, wrong
// password and an account without roles are indistinguishable to the caller.
func (s *AuthService) verify(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.Repo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			hash.BurnCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !hash.CheckPassword(acc.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if len(acc.Roles) == 0 {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// issuePair mints an access token and a paired refresh token. The refresh
// issue revokes whatever refresh token the account held before.
func (s *AuthService) issuePair(ctx context.Context, r *repo.GormRepo, acc *models.Account) (*LoginResult, error) {
	jti := tokens.NewJTI()
	access, accessExp, err := s.Issuer.Issue(tokens.Identity{
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Username:  acc.Username,
		Roles:     acc.RoleNames(),
	}, jti)
	if err != nil {
		return nil, err
	}

	refresh, row, err := r.IssueRefreshToken(ctx, acc.ID, jti, s.now(), config.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   row.ExpiryDate,
		AccountID:    acc.ID.String(),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(email) == "" || password == "" {
		s.Metrics.ObserveLogin(metrics.ResultFailure)
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	acc, err := s.verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.Metrics.ObserveLogin(metrics.ResultFailure)
			l.Warn("login_failed", "status", 400, "reason", "invalid credentials")
			return nil, err
		}
		s.Metrics.ObserveLogin(metrics.ResultError)
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	res, err := s.issuePair(ctx, s.Repo, acc)
	if err != nil {
		s.Metrics.ObserveLogin(metrics.ResultError)
		l.Error("login_failed", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	s.Metrics.ObserveLogin(metrics.ResultSuccess)
	publish(ctx, s.Events, mykafka.TopicUserEvents, res.AccountID, mykafka.UserEvent{
		Type:      mykafka.EventUserLoggedIn,
		AccountID: res.AccountID,
		Email:     acc.Email,
		At:        s.now().UTC(),
	})
	l.Info("login_successful", "account_id", res.AccountID)
	return res, nil
}

// requestedRoles dedupes roles and rejects anything outside the
// self-assignable set.
func requestedRoles(roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if !slices.Contains(selfAssignableRoles, r) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrAccountCreation, r)
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no roles requested", ErrAccountCreation)
	}
	return out, nil
}

func containsAdmin(roles []string) bool {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), models.RoleAdmin) {
			return true
		}
	}
	return false
}

func (s *AuthService) createAccount(ctx context.Context, username, email, password string, roles []string) (*models.Account, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrAccountCreation, minPasswordLength)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &models.Account{
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: pwHash,
	}
	for _, r := range roles {
		acc.Roles = append(acc.Roles, models.AccountRole{Role: r})
	}

	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %w", ErrAccountCreation, err)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if containsAdmin(req.Roles) {
		s.Metrics.ObserveRegistration(metrics.ResultFailure)
		l.Warn("register_failed", "status", 400, "reason", "admin role requested")
		return ErrPrivilegeEscalation
	}
	if err := req.Validate(); err != nil {
		s.Metrics.ObserveRegistration(metrics.ResultFailure)
		l.Warn("register_failed", "status", 400, "error", err)
		return fmt.Errorf("%w: %w", ErrAccountCreation, err)
	}

	roles, err := requestedRoles(req.Roles)
	if err != nil {
		s.Metrics.ObserveRegistration(metrics.ResultFailure)
		l.Warn("register_failed", "status", 400, "error", err)
		return err
	}

	acc, err := s.createAccount(ctx, req.Username, req.Email, req.Password, roles)
	if err != nil {
		if errors.Is(err, ErrAccountCreation) {
			s.Metrics.ObserveRegistration(metrics.ResultFailure)
			l.Warn("register_failed", "status", 400, "error", err)
			return err
		}
		s.Metrics.ObserveRegistration(metrics.ResultError)
		l.Error("register_failed", "status", 500, "error", err)
		return err
	}

	s.Metrics.ObserveRegistration(metrics.ResultSuccess)
	publish(ctx, s.Events, mykafka.TopicUserEvents, acc.ID.String(), mykafka.UserEvent{
		Type:      mykafka.EventUserRegistered,
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Roles:     roles,
		At:        s.now().UTC(),
	})
	l.Info("register_successful", "account_id", acc.ID.String())
	return nil
}

// Refresh exchanges a refresh token for a new pair. Lookup, expiry check,
// single-use marking and reissue share one transaction, and the account row
// is locked before any refresh token row is written.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "token_fp", tokenFingerprint(refreshToken))

	if refreshToken == "" {
		s.Metrics.ObserveRefresh(metrics.ResultFailure)
		return nil, ErrInvalidRefreshToken
	}

	var res *LoginResult
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		stored, err := tx.LookupRefreshToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return fmt.Errorf("lookup refresh token: %w", err)
		}
		if !s.now().Before(stored.ExpiryDate) {
			return ErrInvalidRefreshToken
		}

		// Account row before token rows, the same order as Login.
		if err := tx.LockAccount(ctx, stored.AccountID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}

		acc, err := tx.FindAccountByID(ctx, stored.AccountID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("find account: %w", err)
		}

		marked, err := tx.MarkRefreshTokenUsed(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("mark refresh token used: %w", err)
		}
		if !marked {
			return ErrInvalidRefreshToken
		}

		res, err = s.issuePair(ctx, tx, acc)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) || errors.Is(err, ErrAccountNotFound) {
			s.Metrics.ObserveRefresh(metrics.ResultFailure)
			l.Warn("refresh_failed", "status", 400, "error", err)
			return nil, err
		}
		s.Metrics.ObserveRefresh(metrics.ResultError)
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	s.Metrics.ObserveRefresh(metrics.ResultSuccess)
	publish(ctx, s.Events, mykafka.TopicUserEvents, res.AccountID, mykafka.UserEvent{
		Type:      mykafka.EventRefreshTokenRotated,
		AccountID: res.AccountID,
		At:        s.now().UTC(),
	})
	return res, nil
}

// Logout revokes the refresh token when it belongs to accountID. Unknown,
// already revoked and foreign tokens are a no-op so repeated calls succeed.
func (s *AuthService) Logout(ctx context.Context, accountID, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "token_fp", tokenFingerprint(refreshToken))
	s.Metrics.ObserveLogout()

	if refreshToken == "" {
		return nil
	}
	row, err := s.Repo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		l.Error("logout_failed", "status", 500, "reason", "cannot find refresh token", "error", err)
		return fmt.Errorf("find refresh token: %w", err)
	}
	if row.AccountID.String() != accountID {
		l.Warn("logout_foreign_token", "account_id", accountID)
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, accountID, mykafka.UserEvent{
		Type:      mykafka.EventUserLoggedOut,
		AccountID: accountID,
		At:        s.now().UTC(),
	})
	l.Info("logout_successful")
	return nil
}

// ProvisionAdmin creates an account holding the Admin role plus any extra
// roles. It is only reachable from the operator CLI.
func (s *AuthService) ProvisionAdmin(ctx context.Context, username, email, password string, extra ...string) (*models.Account, error) {
	roles := []string{models.RoleAdmin}
	for _, r := range extra {
		if r != models.RoleAdmin && slices.Contains(selfAssignableRoles, r) && !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	req := transport.RegisterRequest{Username: username, Email: email, Password: password}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.createAccount(ctx, username, email, password, roles)
}

func (s *AuthService) DeleteAccount(ctx context.Context, email string) error {
	acc, err := s.Repo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return s.Repo.DeleteAccount(ctx, acc.ID)
}
