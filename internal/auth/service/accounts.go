package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"waypoint/internal/auth/models"
	"waypoint/internal/auth/password"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	mailutil "waypoint/pkg/email"
	"waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/requestcontext"
)

// Register creates a regular account. A taken email is a conflict whatever
// the password.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, models.RoleRegular)
	if err != nil {
		return nil, err
	}

	s.metrics.incRegistered()
	s.emit(ctx, audit.Event{Action: audit.EventUserRegistered, UserID: user.ID, Email: user.Email})
	profile := user.Profile()
	return &profile, nil
}

func (s *Service) createUser(ctx context.Context, name, email, plain string, role models.Role) (*models.User, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		}
		return nil, dErrors.Infrastructure(err, "failed to create user")
	}
	return user, nil
}

// Login checks credentials and issues a fresh token pair, replacing any
// refresh token from an earlier login.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.incLoginFailure("unknown_email")
			s.emit(ctx, audit.Event{Action: audit.EventLoginFailed, Email: req.Email, Reason: "unknown_email"})
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Infrastructure(err, "failed to load user")
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.metrics.incLoginFailure("bad_password")
			s.authFailure(ctx, "bad_password", "user_id", user.ID.String())
			s.emit(ctx, audit.Event{Action: audit.EventLoginFailed, UserID: user.ID, Email: user.Email, Reason: "bad_password"})
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	pair, err := s.IssuePair(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.EventLoginSucceeded, UserID: user.ID, Email: user.Email})
	return &models.LoginResult{User: user.Profile(), Tokens: pair}, nil
}

// Logout invalidates the caller's refresh token. Repeating it is harmless.
func (s *Service) Logout(ctx context.Context, userID id.UserID) error {
	if err := s.Invalidate(ctx, userID); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{Action: audit.EventLogout, UserID: userID})
	return nil
}

// UpdateProfile applies any subset of name, email and password. A new
// password also logs the user out everywhere by clearing the refresh token.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, req models.UpdateRequest) (*models.Profile, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			if _, ok := dErrors.As(err); ok {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = requestcontext.Now(ctx)

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Infrastructure(err, "failed to update user")
	}

	if req.Password != nil {
		if err := s.Invalidate(ctx, userID); err != nil {
			return nil, err
		}
	}

	s.emit(ctx, audit.Event{Action: audit.EventUserUpdated, UserID: user.ID, Email: user.Email})
	profile := user.Profile()
	return &profile, nil
}

// ListUsers returns one page of users plus the total matching the filter.
// The page and the count are read concurrently.
func (s *Service) ListUsers(ctx context.Context, q models.ListUsersQuery) (*models.UserPage, error) {
	var (
		users []*models.User
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.users.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Infrastructure(err, "failed to list users")
	}

	page := &models.UserPage{
		Users:      make([]models.Profile, 0, len(users)),
		TotalUsers: total,
		Page:       q.Page.Page,
		Limit:      q.Page.Limit,
	}
	for _, u := range users {
		page.Users = append(page.Users, u.Profile())
	}
	return page, nil
}

// DeleteUser removes an account and its location history. actorID is the
// admin performing the deletion.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID id.UserID) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "user ID required")
	}

	// Capture user before deletion to enrich audit events
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if s.locations != nil {
		if _, err := s.locations.DeleteByUser(ctx, userID); err != nil {
			return dErrors.Infrastructure(err, "failed to delete user locations")
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Infrastructure(err, "failed to delete user")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.EventUserDeleted,
		UserID:  userID,
		ActorID: actorID.String(),
		Email:   user.Email,
	})
	return nil
}

// SeedAdmin makes sure an admin account exists for email. An existing account
// with that email is left untouched. An empty name is derived from the address.
func (s *Service) SeedAdmin(ctx context.Context, name, email, plain string) error {
	email = models.NormalizeEmail(email)
	if strings.TrimSpace(name) == "" {
		name = mailutil.DisplayName(email)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		s.logger.InfoContext(ctx, "admin account already present", "email", email)
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Infrastructure(err, "failed to look up admin")
	}

	user, err := s.createUser(ctx, name, email, plain, models.RoleAdmin)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	s.logger.InfoContext(ctx, "admin account created", "user_id", user.ID.String(), "email", email)
	s.emit(ctx, audit.Event{Action: audit.EventUserRegistered, UserID: user.ID, Email: email, Reason: "seeded_admin"})
	return nil
}
