// Package postgres provides a PostgreSQL implementation of the aegis
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
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

// Store is a PostgreSQL implementation of the composite aegis store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("aegis/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("aegis/postgres: migration failed: %w", err)
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

// cond is one WHERE clause with its arguments.
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, store.ErrDuplicate)
	}
	return fmt.Errorf("aegis/postgres: %s: %w", op, err)
}

// jsonContains renders a jsonb containment operand for a single string.
func jsonContains(value string) string {
	b, _ := json.Marshal([]string{value}) //nolint:errcheck // a string slice always encodes
	return string(b)
}

// containsAny builds "col @> a OR col @> b ..." over names.
func containsAny(column string, names []string) cond {
	parts := make([]string, len(names))
	args := make([]any, len(names))
	for i, n := range names {
		parts[i] = column + " @> ?::jsonb"
		args[i] = jsonContains(n)
	}
	return where("("+strings.Join(parts, " OR ")+")", args...)
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

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.pgdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return classify("create permission", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.pgdb.NewSelect(m).
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
	err := s.pgdb.NewSelect(m).
		Where("name = ?", name).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get permission %q", name), err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	res, err := s.pgdb.NewUpdate(permissionToModel(p)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update permission", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
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
	q := s.pgdb.NewSelect(&models).OrderExpr("module ASC, priority ASC, name ASC")
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
	q := s.pgdb.NewSelect((*permissionModel)(nil))
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
	if _, err := s.pgdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return classify("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).
		Where("id = ?", roleID.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify("get role "+roleID.String(), err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).
		Where("name = ?", name).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get role %q", name), err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	res, err := s.pgdb.NewUpdate(roleToModel(r)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
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
		cs = append(cs, where("permissions @> ?::jsonb", jsonContains(filter.Permission)))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		cs = append(cs, where("(LOWER(name) LIKE LOWER(?) OR LOWER(display_name) LIKE LOWER(?))", pattern, pattern))
	}
	return cs
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC, name ASC")
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
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*roleModel)(nil))
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
	if _, err := s.pgdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return classify("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).
		Where("id = ?", userID.String()).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify("get user "+userID.String(), err)
	}
	return userFromModel(m), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	m := new(userModel)
	err := s.pgdb.NewSelect(m).
		Where("username = ?", username).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get user %q", username), err)
	}
	return userFromModel(m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := s.pgdb.NewUpdate(userToModel(u)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return classify("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
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
		cs = append(cs, where("grants @> ?::jsonb", jsonContains(filter.Grant)))
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
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC, username ASC")
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
	result := make([]*user.User, len(models))
	for i := range models {
		result[i] = userFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context, filter *user.ListFilter) (int64, error) {
	q := s.pgdb.NewSelect((*userModel)(nil))
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
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("aegis/postgres: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	res, err := tx.NewUpdate(roleToModel(r)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, classify("rename role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
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
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("aegis/postgres: rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("aegis/postgres: commit tx: %w", err)
	}
	return moved, nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID, name string, at time.Time) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("aegis/postgres: begin tx: %w", err)
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
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aegis/postgres: commit tx: %w", err)
	}
	return nil
}

func (s *Store) RenamePermission(ctx context.Context, p *permission.Permission, oldName string) (int64, int64, error) {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("aegis/postgres: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	res, err := tx.NewUpdate(permissionToModel(p)).
		WherePK().
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, 0, classify("rename permission", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // pgx always reports rows
		return 0, 0, fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}

	var roles []roleModel
	err = tx.NewSelect(&roles).
		Where("permissions @> ?::jsonb", jsonContains(oldName)).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return 0, 0, classify("find roles holding permission", err)
	}
	for i := range roles {
		roles[i].Permissions, _ = capability.Replace(roles[i].Permissions, oldName, p.Name)
		roles[i].UpdatedAt = p.UpdatedAt
		if _, err := tx.NewUpdate(&roles[i]).WherePK().Exec(ctx); err != nil {
			return 0, 0, classify("rewrite role permissions", err)
		}
	}

	var users []userModel
	err = tx.NewSelect(&users).
		Where("grants @> ?::jsonb", jsonContains(oldName)).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return 0, 0, classify("find users holding grant", err)
	}
	for i := range users {
		users[i].Grants, _ = capability.Replace(users[i].Grants, oldName, p.Name)
		users[i].UpdatedAt = p.UpdatedAt
		if _, err := tx.NewUpdate(&users[i]).WherePK().Exec(ctx); err != nil {
			return 0, 0, classify("rewrite user grants", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("aegis/postgres: commit tx: %w", err)
	}
	return int64(len(roles)), int64(len(users)), nil
}

func (s *Store) DeletePermissions(ctx context.Context, ids []id.PermissionID, names []string, at time.Time) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("aegis/postgres: begin tx: %w", err)
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
	roleRef := containsAny("permissions", names)
	inUse.Roles, err = tx.NewSelect((*roleModel)(nil)).
		Where(roleRef.expr, roleRef.args...).
		Where("deleted_at IS NULL").
		Count(ctx)
	if err != nil {
		return classify("count referencing roles", err)
	}
	userRef := containsAny("grants", names)
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
		return fmt.Errorf("aegis/postgres: commit tx: %w", err)
	}
	return nil
}
