// Package sqlite provides a SQLite implementation of the aegis composite
// store using grove ORM. Permission and grant lists are stored as JSON text
// and queried with json_each.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite aegis store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("aegis/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("aegis/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type cond struct {
	expr string
	args []any
}

func where(expr string, args ...any) cond { return cond{expr: expr, args: args} }

// classify maps driver errors onto store sentinels.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	return fmt.Errorf("aegis/sqlite: %s: %w", op, err)
}

// holds matches rows whose JSON list column contains value.
func holds(column, value string) cond {
	return where("EXISTS (SELECT 1 FROM json_each("+column+") WHERE json_each.value = ?)", value)
}

// holdsAny matches rows whose JSON list column contains any of values.
func holdsAny(column string, values []string) cond {
	return where("EXISTS (SELECT 1 FROM json_each("+column+") WHERE json_each.value IN ("+placeholders(len(values))+"))",
		toAny(values)...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.sdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return classify("create permission", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", permID.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify("get permission "+permID.String(), err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).
		Where("name = ?", name).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get permission %q", name), err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	res, err := s.sdb.NewUpdate(permissionToModel(p)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update permission", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

func permissionConds(filter *permission.ListFilter) []cond {
	if filter == nil {
		return []cond{where("deleted_at IS NULL")}
	}
	var cs []cond
	if !filter.IncludeDeleted {
		cs = append(cs, where("deleted_at IS NULL"))
	}
	if filter.Module != "" {
		cs = append(cs, where("module = ?", filter.Module))
	}
	if filter.Action != "" {
		cs = append(cs, where("action = ?", filter.Action))
	}
	if filter.Category != "" {
		cs = append(cs, where("category = ?", string(filter.Category)))
	}
	if filter.Status != "" {
		cs = append(cs, where("status = ?", string(filter.Status)))
	}
	if filter.IsSystem != nil {
		cs = append(cs, where("is_system = ?", *filter.IsSystem))
	}
	if len(filter.Names) > 0 {
		cs = append(cs, where("name IN ("+placeholders(len(filter.Names))+")", toAny(filter.Names)...))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cs = append(cs, where("(LOWER(name) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?))", pattern, pattern))
	}
	return cs
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.sdb.NewSelect(&models).OrderExpr("module ASC, priority ASC, name ASC")
	for _, c := range permissionConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list permissions", err)
	}
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*permissionModel)(nil))
	for _, c := range permissionConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, classify("count permissions", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.sdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return classify("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", roleID.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify("get role "+roleID.String(), err)
	}
	r, err := roleFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("aegis/sqlite: get role: %w", err)
	}
	return r, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("name = ?", name).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get role %q", name), err)
	}
	r, err := roleFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("aegis/sqlite: get role by name: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	res, err := s.sdb.NewUpdate(roleToModel(r)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update role", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func roleConds(filter *role.ListFilter) []cond {
	if filter == nil {
		return []cond{where("deleted_at IS NULL")}
	}
	var cs []cond
	if !filter.IncludeDeleted {
		cs = append(cs, where("deleted_at IS NULL"))
	}
	if filter.IsSystem != nil {
		cs = append(cs, where("is_system = ?", *filter.IsSystem))
	}
	if filter.Status != "" {
		cs = append(cs, where("status = ?", string(filter.Status)))
	}
	if filter.Permission != "" {
		cs = append(cs, holds("permissions", filter.Permission))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cs = append(cs, where("(LOWER(name) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?))", pattern, pattern))
	}
	return cs
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, name ASC")
	for _, c := range roleConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list roles", err)
	}
	result := make([]*role.Role, 0, len(models))
	for i := range models {
		r, err := roleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("aegis/sqlite: list roles: %w", err)
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*roleModel)(nil))
	for _, c := range roleConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, classify("count roles", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	if _, err := s.sdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return classify("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", userID.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify("get user "+userID.String(), err)
	}
	u, err := userFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("aegis/sqlite: get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).
		Where("username = ?", username).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get user %q", username), err)
	}
	u, err := userFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("aegis/sqlite: get user by username: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := s.sdb.NewUpdate(userToModel(u)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update user", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	return nil
}

func userConds(filter *user.ListFilter) []cond {
	if filter == nil {
		return []cond{where("deleted_at IS NULL")}
	}
	var cs []cond
	if !filter.IncludeDeleted {
		cs = append(cs, where("deleted_at IS NULL"))
	}
	if filter.Role != "" {
		cs = append(cs, where("role = ?", filter.Role))
	}
	if filter.Grant != "" {
		cs = append(cs, holds("grants", filter.Grant))
	}
	if filter.Status != "" {
		cs = append(cs, where("status = ?", string(filter.Status)))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cs = append(cs, where("(LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?))",
			pattern, pattern, pattern))
	}
	return cs
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	var models []userModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, username ASC")
	for _, c := range userConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, classify("list users", err)
	}
	result := make([]*user.User, 0, len(models))
	for i := range models {
		u, err := userFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("aegis/sqlite: list users: %w", err)
		}
		result = append(result, u)
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*userModel)(nil))
	for _, c := range userConds(filter) {
		q = q.Where(c.expr, c.args...)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, classify("count users", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Transactional units
// ──────────────────────────────────────────────────

func (s *Store) RenameRole(ctx context.Context, r *role.Role, oldName string) (int64, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("aegis/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	res, err := tx.NewUpdate(roleToModel(r)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, classify("rename role", err)
	}
	if rowsAffected(res) == 0 {
		return 0, fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}

	res, err = tx.NewUpdate((*userModel)(nil)).
		Set("role = ?", r.Name).
		Set("updated_at = ?", r.UpdatedAt).
		Where("role = ?", oldName).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, classify("move role holders", err)
	}
	moved := rowsAffected(res)

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("aegis/sqlite: commit tx: %w", err)
	}
	return moved, nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID, name string, at time.Time) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("aegis/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	holders, err := tx.NewSelect((*userModel)(nil)).
		Where("role = ?", name).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return classify("count role holders", err)
	}
	if holders > 0 {
		return &store.InUseError{Users: holders}
	}

	res, err := tx.NewUpdate((*roleModel)(nil)).
		Set("deleted_at = ?", at).
		Set("status = ?", string(role.StatusInactive)).
		Set("updated_at = ?", at).
		Where("id = ?", roleID.String()).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("delete role", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aegis/sqlite: commit tx: %w", err)
	}
	return nil
}

func (s *Store) RenamePermission(ctx context.Context, p *permission.Permission, oldName string) (int64, int64, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("aegis/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	res, err := tx.NewUpdate(permissionToModel(p)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, 0, classify("rename permission", err)
	}
	if rowsAffected(res) == 0 {
		return 0, 0, fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}

	roleRef := holds("permissions", oldName)
	var roles []roleModel
	err = tx.NewSelect(&roles).
		Where(roleRef.expr, roleRef.args...).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return 0, 0, classify("find roles holding permission", err)
	}
	for i := range roles {
		perms, err := decodeList(roles[i].Permissions, "role permissions")
		if err != nil {
			return 0, 0, fmt.Errorf("aegis/sqlite: %w", err)
		}
		perms, _ = capability.Replace(perms, oldName, p.Name)
		roles[i].Permissions = encodeList(perms)
		roles[i].UpdatedAt = p.UpdatedAt
		if _, err := tx.NewUpdate(&roles[i]).WherePK().Exec(ctx); err != nil {
			return 0, 0, classify("rewrite role permissions", err)
		}
	}

	userRef := holds("grants", oldName)
	var users []userModel
	err = tx.NewSelect(&users).
		Where(userRef.expr, userRef.args...).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return 0, 0, classify("find users holding grant", err)
	}
	for i := range users {
		grants, err := decodeList(users[i].Grants, "user grants")
		if err != nil {
			return 0, 0, fmt.Errorf("aegis/sqlite: %w", err)
		}
		grants, _ = capability.Replace(grants, oldName, p.Name)
		users[i].Grants = encodeList(grants)
		users[i].UpdatedAt = p.UpdatedAt
		if _, err := tx.NewUpdate(&users[i]).WherePK().Exec(ctx); err != nil {
			return 0, 0, classify("rewrite user grants", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("aegis/sqlite: commit tx: %w", err)
	}
	return int64(len(roles)), int64(len(users)), nil
}

func (s *Store) DeletePermissions(ctx context.Context, ids []id.PermissionID, names []string, at time.Time) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("aegis/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	idArgs := make([]any, len(ids))
	for i, pid := range ids {
		idArgs[i] = pid.String()
	}
	live, err := tx.NewSelect((*permissionModel)(nil)).
		Where("id IN ("+placeholders(len(ids))+")", idArgs...).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return classify("count permissions", err)
	}
	if live != int64(len(ids)) {
		return fmt.Errorf("permissions: %d of %d live: %w", live, len(ids), store.ErrNotFound)
	}

	inUse := &store.InUseError{}
	roleRef := holdsAny("permissions", names)
	inUse.Roles, err = tx.NewSelect((*roleModel)(nil)).
		Where(roleRef.expr, roleRef.args...).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return classify("count referencing roles", err)
	}
	userRef := holdsAny("grants", names)
	inUse.Users, err = tx.NewSelect((*userModel)(nil)).
		Where(userRef.expr, userRef.args...).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return classify("count referencing users", err)
	}
	if inUse.Roles > 0 || inUse.Users > 0 {
		return inUse
	}

	_, err = tx.NewUpdate((*permissionModel)(nil)).
		Set("deleted_at = ?", at).
		Set("status = ?", string(permission.StatusInactive)).
		Set("updated_at = ?", at).
		Where("id IN ("+placeholders(len(ids))+")", idArgs...).
		Exec(ctx)
	if err != nil {
		return classify("delete permissions", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aegis/sqlite: commit tx: %w", err)
	}
	return nil
}
