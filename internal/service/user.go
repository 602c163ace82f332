package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/auth"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// UserService registers and looks up user profiles.
type UserService struct {
	store    store.UserStore
	verifier auth.Verifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(st store.UserStore, verifier auth.Verifier, log *logger.Logger) *UserService {
	return &UserService{
		store:    st,
		verifier: verifier,
		logger:   log.Named("users"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register stores the profile of the token's bearer. Registering again updates
// name and email; the role chosen at first registration is fixed.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.UserProfile, error) {
	id, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be %q or %q", lifecycle.ErrValidation, model.RoleCustomer, model.RoleSupport)
	}

	profile := &model.UserProfile{
		UID:       id.UID,
		Name:      firstNonEmpty(req.Name, id.Name),
		Email:     firstNonEmpty(req.Email, id.Email),
		Role:      req.Role,
		CreatedAt: s.now(),
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("%w: name is required", lifecycle.ErrValidation)
	}

	existing, err := s.store.GetUser(ctx, id.UID)
	switch {
	case err == nil:
		if existing.Role != profile.Role {
			return nil, fmt.Errorf("%w: user is already registered as %s", lifecycle.ErrConflict, existing.Role)
		}
		profile.CreatedAt = existing.CreatedAt
	case !errors.Is(err, lifecycle.ErrNotFound):
		return nil, err
	}

	if err := s.store.SaveUser(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("uid", profile.UID), zap.String("role", string(profile.Role)))
	return profile, nil
}

// Login returns the stored profile of the token's bearer.
func (s *UserService) Login(ctx context.Context, idToken string) (*model.UserProfile, error) {
	id, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return s.store.GetUser(ctx, id.UID)
}

// Me returns the profile for uid.
func (s *UserService) Me(ctx context.Context, uid string) (*model.UserProfile, error) {
	return s.store.GetUser(ctx, uid)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
