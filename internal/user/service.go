package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"coffeeshop-be/internal/auth"
	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	LookupPrincipal(ctx context.Context, username string) (auth.Principal, error)
	ToggleAdmin(ctx context.Context, actor auth.Principal, id int64) (*User, error)
	ToggleActive(ctx context.Context, actor auth.Principal, id int64) (*User, error)
}

type service struct {
	repo   Repository
	hasher auth.Hasher
	tokens *auth.TokenService
}

func NewService(repo Repository, hasher auth.Hasher, tokens *auth.TokenService) Service {
	return &service{repo: repo, hasher: hasher, tokens: tokens}
}

func validateRegister(in RegisterInput) error {
	switch {
	case in.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case in.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	case len(in.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	return nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashed,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUserExists) {
			log.Info("registration conflict", zap.String("username", in.Username))
		}
		return nil, err
	}

	log.Info("user registered",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)
	return u, nil
}

// Login answers every failure with ErrInvalidCredentials so callers cannot
// tell which half was wrong.
func (s *service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login rejected", zap.String("reason", "user_not_found"))
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		log.Info("login rejected", zap.String("reason", "password_mismatch"), zap.Int64("user_id", u.ID))
		return nil, auth.ErrInvalidCredentials
	}

	if !u.IsActive {
		log.Info("login rejected", zap.String("reason", "user_inactive"), zap.Int64("user_id", u.ID))
		return nil, auth.ErrInvalidCredentials
	}

	access, _, err := s.tokens.Issue(u.Username, auth.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.tokens.Issue(u.Username, auth.KindRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.TTL(auth.KindAccess).Seconds()),
	}, nil
}

// Refresh trades a valid refresh token for a new access token. The subject is
// resolved again so deactivated users cannot keep refreshing.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, auth.ErrMissingToken
	}

	claims, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		logger.FromCtx(ctx).Info("refresh rejected", zap.String("reason", auth.FailureReason(err)))
		return nil, err
	}

	p, err := s.LookupPrincipal(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	access, _, err := s.tokens.Issue(p.Username, auth.KindAccess)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL(auth.KindAccess).Seconds()),
	}, nil
}

func (s *service) LookupPrincipal(ctx context.Context, username string) (auth.Principal, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return auth.Principal{}, auth.ErrSubjectNotFound
		}
		return auth.Principal{}, err
	}
	if !u.IsActive {
		return auth.Principal{}, auth.ErrSubjectInactive
	}
	return u.Principal(), nil
}

func (s *service) ToggleAdmin(ctx context.Context, actor auth.Principal, id int64) (*User, error) {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.UserID == id {
		return nil, fmt.Errorf("%w: cannot change your own admin flag", ErrInvalidInput)
	}

	u, err := s.repo.ToggleAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("admin flag toggled",
		zap.Int64("actor_id", actor.UserID),
		zap.Int64("user_id", u.ID),
		zap.Bool("is_admin", u.IsAdmin),
	)
	return u, nil
}

func (s *service) ToggleActive(ctx context.Context, actor auth.Principal, id int64) (*User, error) {
	if _, err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	u, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("active flag toggled",
		zap.Int64("actor_id", actor.UserID),
		zap.Int64("user_id", u.ID),
		zap.Bool("is_active", u.IsActive),
	)
	return u, nil
}
