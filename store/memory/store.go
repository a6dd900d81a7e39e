// Package memory provides an in-memory implementation of the aegis composite
// store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

// Compile-time interface checks.
var (
	_ permission.Store = (*Store)(nil)
	_ role.Store       = (*Store)(nil)
	_ user.Store       = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all aegis entities. The
// transactional units run under the write lock, which makes them atomic
// with respect to every other call.
type Store struct {
	mu sync.RWMutex

	permissions map[string]*permission.Permission
	roles       map[string]*role.Role
	users       map[string]*user.User
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		permissions: make(map[string]*permission.Permission),
		roles:       make(map[string]*role.Role),
		users:       make(map[string]*user.User),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.livePermissionByName(p.Name) != nil {
		return fmt.Errorf("permission %q: %w", p.Name, store.ErrDuplicate)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok || p.DeletedAt != nil {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.livePermissionByName(name); p != nil {
		return copyPermission(p), nil
	}
	return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePermissionLocked(p)
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if matchPermission(p, filter) {
			result = append(result, copyPermission(p))
		}
	}
	permission.Sort(result)
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountPermissions(_ context.Context, filter *permission.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.permissions {
		if matchPermission(p, filter) {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveRoleByName(r.Name) != nil {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.liveRoleByName(name); r != nil {
		return copyRole(r), nil
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRoleLocked(r)
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if matchRole(r, filter) {
			result = append(result, copyRole(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Name < result[j].Name
	})
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountRoles(_ context.Context, filter *role.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.roles {
		if matchRole(r, filter) {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// User Store
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveUserByUsername(u.Username) != nil {
		return fmt.Errorf("user %q: %w", u.Username, store.ErrDuplicate)
	}
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID.String()]
	if !ok || u.DeletedAt != nil {
		return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.liveUserByUsername(username); u != nil {
		return copyUser(u), nil
	}
	return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID.String()]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	s.users[u.ID.String()] = copyUser(u)
	return nil
}

func (s *Store) ListUsers(_ context.Context, filter *user.ListFilter) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if matchUser(u, filter) {
			result = append(result, copyUser(u))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Username < result[j].Username
	})
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountUsers(_ context.Context, filter *user.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if matchUser(u, filter) {
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Transactional units
// ──────────────────────────────────────────────────

func (s *Store) RenameRole(_ context.Context, r *role.Role, oldName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other := s.liveRoleByName(r.Name); other != nil && other.ID.String() != r.ID.String() {
		return 0, fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
	}
	if err := s.updateRoleLocked(r); err != nil {
		return 0, err
	}
	var moved int64
	for _, u := range s.users {
		if u.DeletedAt == nil && u.Role == oldName {
			u.Role = r.Name
			u.UpdatedAt = r.UpdatedAt
			moved++
		}
	}
	return moved, nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID.String()]
	if !ok || r.DeletedAt != nil {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	var holders int64
	for _, u := range s.users {
		if u.DeletedAt == nil && u.Role == name {
			holders++
		}
	}
	if holders > 0 {
		return &store.InUseError{Users: holders}
	}
	r.DeletedAt = &at
	r.Status = role.StatusInactive
	r.UpdatedAt = at
	return nil
}

func (s *Store) RenamePermission(_ context.Context, p *permission.Permission, oldName string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other := s.livePermissionByName(p.Name); other != nil && other.ID.String() != p.ID.String() {
		return 0, 0, fmt.Errorf("permission %q: %w", p.Name, store.ErrDuplicate)
	}
	if err := s.updatePermissionLocked(p); err != nil {
		return 0, 0, err
	}
	var roles, users int64
	for _, r := range s.roles {
		if r.DeletedAt != nil {
			continue
		}
		if next, changed := capability.Replace(r.Permissions, oldName, p.Name); changed {
			r.Permissions = next
			r.UpdatedAt = p.UpdatedAt
			roles++
		}
	}
	for _, u := range s.users {
		if u.DeletedAt != nil {
			continue
		}
		if next, changed := capability.Replace(u.Grants, oldName, p.Name); changed {
			u.Grants = next
			u.UpdatedAt = p.UpdatedAt
			users++
		}
	}
	return roles, users, nil
}

func (s *Store) DeletePermissions(_ context.Context, ids []id.PermissionID, names []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	targets := make([]*permission.Permission, 0, len(ids))
	for _, pid := range ids {
		p, ok := s.permissions[pid.String()]
		if !ok || p.DeletedAt != nil {
			return fmt.Errorf("permission %s: %w", pid, store.ErrNotFound)
		}
		targets = append(targets, p)
	}

	inUse := &store.InUseError{}
	for _, r := range s.roles {
		if r.DeletedAt == nil && referencesAny(r.Permissions, names) {
			inUse.Roles++
		}
	}
	for _, u := range s.users {
		if u.DeletedAt == nil && referencesAny(u.Grants, names) {
			inUse.Users++
		}
	}
	if inUse.Roles > 0 || inUse.Users > 0 {
		return inUse
	}

	for _, p := range targets {
		p.DeletedAt = &at
		p.Status = permission.StatusInactive
		p.UpdatedAt = at
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (s *Store) updatePermissionLocked(p *permission.Permission) error {
	existing, ok := s.permissions[p.ID.String()]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) updateRoleLocked(r *role.Role) error {
	existing, ok := s.roles[r.ID.String()]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) livePermissionByName(name string) *permission.Permission {
	for _, p := range s.permissions {
		if p.DeletedAt == nil && p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Store) liveRoleByName(name string) *role.Role {
	for _, r := range s.roles {
		if r.DeletedAt == nil && r.Name == name {
			return r
		}
	}
	return nil
}

func (s *Store) liveUserByUsername(username string) *user.User {
	for _, u := range s.users {
		if u.DeletedAt == nil && u.Username == username {
			return u
		}
	}
	return nil
}

func matchPermission(p *permission.Permission, f *permission.ListFilter) bool {
	if f == nil {
		return p.DeletedAt == nil
	}
	if !f.IncludeDeleted && p.DeletedAt != nil {
		return false
	}
	if f.Module != "" && p.Module != f.Module {
		return false
	}
	if f.Action != "" && p.Action != f.Action {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.IsSystem != nil && p.IsSystem != *f.IsSystem {
		return false
	}
	if len(f.Names) > 0 && !capability.Contains(f.Names, p.Name) {
		return false
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.DisplayName, f.Search) {
		return false
	}
	return true
}

func matchRole(r *role.Role, f *role.ListFilter) bool {
	if f == nil {
		return r.DeletedAt == nil
	}
	if !f.IncludeDeleted && r.DeletedAt != nil {
		return false
	}
	if f.IsSystem != nil && r.IsSystem != *f.IsSystem {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Permission != "" && !capability.Contains(r.Permissions, f.Permission) {
		return false
	}
	if f.Search != "" && !containsFold(r.Name, f.Search) && !containsFold(r.DisplayName, f.Search) {
		return false
	}
	return true
}

func matchUser(u *user.User, f *user.ListFilter) bool {
	if f == nil {
		return u.DeletedAt == nil
	}
	if !f.IncludeDeleted && u.DeletedAt != nil {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Grant != "" && !capability.Contains(u.Grants, f.Grant) {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Search != "" && !containsFold(u.Username, f.Search) && !containsFold(u.Email, f.Search) {
		return false
	}
	return true
}

func referencesAny(list, names []string) bool {
	for _, n := range names {
		if capability.Contains(list, n) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	c.Permissions = append([]string(nil), r.Permissions...)
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func copyUser(u *user.User) *user.User {
	c := *u
	c.Grants = append([]string(nil), u.Grants...)
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func applyPagination[T any](items []*T, limit, offset int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
