package aegis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

// CreateUserInput describes a new user. Role defaults to the built-in
// "user" role and must name a live role.
type CreateUserInput struct {
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Grants      []string `json:"grants,omitempty"`
}

// CreateUser registers the permission-relevant record of a user.
func (e *Engine) CreateUser(ctx context.Context, in CreateUserInput) (*user.User, error) {
	roleName := in.Role
	if roleName == "" {
		roleName = role.User
	}
	if _, err := e.resolveRoleName(ctx, roleName); err != nil {
		return nil, err
	}

	now := e.timestamp()
	u := &user.User{
		ID:          id.NewUserID(),
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Role:        roleName,
		Grants:      in.Grants,
		Status:      user.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, invalid(err)
	}
	if _, err := e.store.GetUserByUsername(ctx, u.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, translate("lookup user", err, nil, nil)
	}
	if err := e.store.CreateUser(ctx, u); err != nil {
		return nil, translate("create user", err, nil, ErrUserExists)
	}

	e.logger.Info("user created", slog.String("username", u.Username), slog.String("role", u.Role))
	e.plugins.EmitUserCreated(ctx, u)
	return u, nil
}

// GetUser returns a live user.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate("get user", err, ErrUserNotFound, nil)
	}
	return u, nil
}

// ListUsers returns users matching the filter.
func (e *Engine) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	list, err := e.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, translate("list users", err, nil, nil)
	}
	return list, nil
}

// CountUsers counts users matching the filter.
func (e *Engine) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	n, err := e.store.CountUsers(ctx, filter)
	if err != nil {
		return 0, translate("count users", err, nil, nil)
	}
	return n, nil
}

// AssignRole moves a user to another role. The role must be live.
func (e *Engine) AssignRole(ctx context.Context, userID id.UserID, roleName string) (*user.User, error) {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := e.resolveRoleName(ctx, roleName); err != nil {
		return nil, err
	}
	if u.Role == roleName {
		return u, nil
	}

	old := u.Role
	u.Role = roleName
	u.UpdatedAt = e.timestamp()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return nil, translate("assign role", err, ErrUserNotFound, nil)
	}
	e.invalidateUser(ctx, u.ID.String())

	e.logger.Info("user role changed",
		slog.String("username", u.Username),
		slog.String("from", old),
		slog.String("to", roleName),
	)
	e.plugins.EmitUserRoleChanged(ctx, u, old)
	return u, nil
}

// SetUserGrants replaces a user's direct capability grants.
func (e *Engine) SetUserGrants(ctx context.Context, userID id.UserID, grants []string) (*user.User, error) {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	old := u.Grants
	u.Grants = grants
	u.Normalize()
	if err := capability.ValidateAll(u.Grants); err != nil {
		return nil, invalid(err)
	}
	u.UpdatedAt = e.timestamp()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return nil, translate("set grants", err, ErrUserNotFound, nil)
	}
	e.invalidateUser(ctx, u.ID.String())

	e.logger.Info("user grants replaced",
		slog.String("username", u.Username),
		slog.Int("before", len(old)),
		slog.Int("after", len(u.Grants)),
	)
	e.plugins.EmitUserGrantsChanged(ctx, u, old)
	return u, nil
}

// DeleteUser soft-deletes a user.
func (e *Engine) DeleteUser(ctx context.Context, userID id.UserID) error {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	at := e.timestamp()
	u.DeletedAt = &at
	u.Status = user.StatusInactive
	u.UpdatedAt = at
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return translate("delete user", err, ErrUserNotFound, nil)
	}
	e.invalidateUser(ctx, u.ID.String())

	e.logger.Info("user deleted", slog.String("username", u.Username))
	e.plugins.EmitUserDeleted(ctx, u)
	return nil
}

// resolveRoleName is the one place a role name held by a user is checked:
// it must name a live role.
func (e *Engine) resolveRoleName(ctx context.Context, name string) (*role.Role, error) {
	if err := capability.ValidateRoleName(name); err != nil {
		return nil, invalid(err)
	}
	r, err := e.store.GetRoleByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	if err != nil {
		return nil, translate("lookup role", err, nil, nil)
	}
	return r, nil
}
