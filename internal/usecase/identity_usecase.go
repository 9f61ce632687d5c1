package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// one-time login token lifetime
const loginTokenTTL = 24 * time.Hour

// TokenIssuer mints session JWTs. Injected from main.
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error)
}

// IdentityUsecase maps a checkout to a buyer identity and exchanges
// one-time login tokens for sessions.
type IdentityUsecase struct {
	users  repo.UserRepository
	issuer TokenIssuer
	logger *zap.Logger
	now    func() time.Time
}

func NewIdentityUsecase(users repo.UserRepository, issuer TokenIssuer, logger *zap.Logger) *IdentityUsecase {
	return &IdentityUsecase{users: users, issuer: issuer, logger: logger, now: time.Now}
}

// ResolveBuyer returns the buyer for a checkout. Authenticated requests
// resolve to the session principal. Anonymous requests find or create a
// placeholder account by email and rotate its one-time login token; the
// fresh token is returned so the coordinator can mail it after commit. An
// email belonging to a registered account is rejected.
// Runs on the transaction's user repository so the account creation commits
// or rolls back with the order.
func (u *IdentityUsecase) ResolveBuyer(ctx context.Context, users repo.UserRepository, authUserID int64, email string) (model.User, string, error) {
	if authUserID > 0 {
		buyer, err := users.FindByID(ctx, authUserID)
		if err == repo.ErrNotFound {
			return model.User{}, "", NewUnauthorized("unknown user")
		}
		if err != nil {
			return model.User{}, "", NewInternal("db error")
		}
		return buyer, "", nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, "", NewBadRequest("email required for anonymous checkout")
	}

	token, err := newToken()
	if err != nil {
		return model.User{}, "", NewInternal("token generation failed")
	}
	expires := u.now().Add(loginTokenTTL)

	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		// only placeholder accounts may be claimed by email; a registered
		// account would let anyone holding the address inject orders into it
		// and mint login tokens for it
		if !existing.IsAnonymous {
			return model.User{}, "", NewBadRequest("an account exists for this email, please log in")
		}
		// same email checks out again: reuse the account, rotate the token
		if err := users.UpdateLoginToken(ctx, existing.ID, token, &expires); err != nil {
			return model.User{}, "", NewInternal("db error")
		}
		return existing, token, nil
	}
	if err != repo.ErrNotFound {
		return model.User{}, "", NewInternal("db error")
	}

	buyer := model.User{
		Email:             email,
		Role:              model.RoleUser,
		IsAnonymous:       true,
		IsActive:          true,
		LoginToken:        token,
		LoginTokenExpires: &expires,
	}
	if err := users.Create(ctx, &buyer); err != nil {
		return model.User{}, "", NewInternal("db error")
	}
	return buyer, token, nil
}

type MagicLoginOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
}

// PasswordLogin authenticates a registered account. Placeholder accounts
// created by anonymous checkout have no password and cannot log in this way.
func (u *IdentityUsecase) PasswordLogin(ctx context.Context, email, password string) (MagicLoginOutput, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return MagicLoginOutput{}, NewBadRequest("email and password required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err == repo.ErrNotFound {
		return MagicLoginOutput{}, NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return MagicLoginOutput{}, NewInternal("db error")
	}
	if user.IsAnonymous || user.PasswordHash == "" || !user.IsActive {
		return MagicLoginOutput{}, NewUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return MagicLoginOutput{}, NewUnauthorized("invalid credentials")
	}

	now := u.now()
	signed, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		u.logger.Error("issue session token", zap.Error(err), zap.Int64("user_id", user.ID))
		return MagicLoginOutput{}, NewInternal("token issue failed")
	}
	return MagicLoginOutput{AccessToken: signed, ExpiresAt: expiresAt, UserID: user.ID}, nil
}

// MagicLogin trades a valid one-time login token for a session and
// consumes the token.
func (u *IdentityUsecase) MagicLogin(ctx context.Context, token string) (MagicLoginOutput, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return MagicLoginOutput{}, NewBadRequest("missing token")
	}

	user, err := u.users.FindByLoginToken(ctx, token)
	if err == repo.ErrNotFound {
		return MagicLoginOutput{}, NewUnauthorized("invalid token")
	}
	if err != nil {
		return MagicLoginOutput{}, NewInternal("db error")
	}

	now := u.now()
	if user.LoginTokenExpires == nil || now.After(*user.LoginTokenExpires) {
		return MagicLoginOutput{}, NewExpiredToken("login token expired")
	}

	// single use
	if err := u.users.UpdateLoginToken(ctx, user.ID, "", nil); err != nil {
		return MagicLoginOutput{}, NewInternal("db error")
	}

	signed, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		u.logger.Error("issue session token", zap.Error(err), zap.Int64("user_id", user.ID))
		return MagicLoginOutput{}, NewInternal("token issue failed")
	}

	return MagicLoginOutput{AccessToken: signed, ExpiresAt: expiresAt, UserID: user.ID}, nil
}

// newToken returns a high-entropy URL-safe random token.
func newToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
