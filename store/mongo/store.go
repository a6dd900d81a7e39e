// Package mongo provides a MongoDB implementation of the aegis composite
// store. Single-document operations go through grove; the cascading units
// run in a multi-document transaction and need a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/aegis/capability"
	"github.com/xraph/aegis/id"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/store"
	"github.com/xraph/aegis/user"
)

// Collection name constants.
const (
	colPermissions = "aegis_permissions"
	colRoles       = "aegis_roles"
	colUsers       = "aegis_users"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite aegis store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all aegis collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("aegis/mongo: migrate %s indexes: %w", col, err)
		}
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

// liveOnly matches documents whose deleted_at is null.
var liveOnly = bson.M{"$type": "null"}

// liveUnique is a unique index over documents whose deleted_at is null.
func liveUnique(field string) mongod.IndexModel {
	return mongod.IndexModel{
		Keys: bson.D{{Key: field, Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"deleted_at": liveOnly}),
	}
}

// migrationIndexes returns the index definitions for all aegis collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colPermissions: {
			liveUnique("name"),
			{Keys: bson.D{{Key: "module", Value: 1}, {Key: "priority", Value: 1}}},
		},
		colRoles: {
			liveUnique("name"),
			{Keys: bson.D{{Key: "permissions", Value: 1}}},
		},
		colUsers: {
			liveUnique("username"),
			{Keys: bson.D{{Key: "role", Value: 1}}},
			{Keys: bson.D{{Key: "grants", Value: 1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// classify maps driver errors onto store sentinels.
func classify(op string, err error) error {
	switch {
	case isNoDocuments(err):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case mongod.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		return fmt.Errorf("aegis/mongo: %s: %w", op, err)
	}
}

func searchRegex(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// inTx runs fn in a multi-document transaction.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	client := s.mdb.Collection(colPermissions).Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("aegis/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.mdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return classify("create permission", err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String(), "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify("get permission "+permID.String(), err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissionByName(ctx context.Context, name string) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name, "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get permission %q", name), err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	m := permissionToModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "deleted_at": nil}).
		Exec(ctx)
	if err != nil {
		return classify("update permission", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

func permissionFilter(filter *permission.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		f["deleted_at"] = nil
	}
	if filter == nil {
		return f
	}
	if filter.Module != "" {
		f["module"] = filter.Module
	}
	if filter.Action != "" {
		f["action"] = filter.Action
	}
	if filter.Category != "" {
		f["category"] = string(filter.Category)
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.IsSystem != nil {
		f["is_system"] = *filter.IsSystem
	}
	if len(filter.Names) > 0 {
		f["name"] = bson.M{"$in": filter.Names}
	}
	if filter.Search != "" {
		f["$or"] = bson.A{
			bson.M{"name": searchRegex(filter.Search)},
			bson.M{"display_name": searchRegex(filter.Search)},
		}
	}
	return f
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.mdb.NewFind(&models).
		Filter(permissionFilter(filter)).
		Sort(bson.D{{Key: "module", Value: 1}, {Key: "priority", Value: 1}, {Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*permissionModel)(nil)).
		Filter(permissionFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, classify("count permissions", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return classify("create role", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String(), "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify("get role "+roleID.String(), err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name": name, "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get role %q", name), err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "deleted_at": nil}).
		Exec(ctx)
	if err != nil {
		return classify("update role", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func roleFilter(filter *role.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		f["deleted_at"] = nil
	}
	if filter == nil {
		return f
	}
	if filter.IsSystem != nil {
		f["is_system"] = *filter.IsSystem
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.Permission != "" {
		f["permissions"] = filter.Permission
	}
	if filter.Search != "" {
		f["$or"] = bson.A{
			bson.M{"name": searchRegex(filter.Search)},
			bson.M{"display_name": searchRegex(filter.Search)},
		}
	}
	return f
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.mdb.NewFind(&models).
		Filter(roleFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(roleFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, classify("count roles", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// User operations
// ──────────────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	if _, err := s.mdb.NewInsert(userToModel(u)).Exec(ctx); err != nil {
		return classify("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String(), "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify("get user "+userID.String(), err)
	}
	return userFromModel(&m), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"username": username, "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		return nil, classify(fmt.Sprintf("get user %q", username), err)
	}
	return userFromModel(&m), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := userToModel(u)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "deleted_at": nil}).
		Exec(ctx)
	if err != nil {
		return classify("update user", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	return nil
}

func userFilter(filter *user.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		f["deleted_at"] = nil
	}
	if filter == nil {
		return f
	}
	if filter.Role != "" {
		f["role"] = filter.Role
	}
	if filter.Grant != "" {
		f["grants"] = filter.Grant
	}
	if filter.Status != "" {
		f["status"] = string(filter.Status)
	}
	if filter.Search != "" {
		f["$or"] = bson.A{
			bson.M{"username": searchRegex(filter.Search)},
			bson.M{"email": searchRegex(filter.Search)},
			bson.M{"display_name": searchRegex(filter.Search)},
		}
	}
	return f
}

func (s *Store) ListUsers(ctx context.Context, filter *user.ListFilter) ([]*user.User, error) {
	var models []userModel
	q := s.mdb.NewFind(&models).
		Filter(userFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*userModel)(nil)).
		Filter(userFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, classify("count users", err)
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Transactional units
// ──────────────────────────────────────────────────

func (s *Store) RenameRole(ctx context.Context, r *role.Role, oldName string) (int64, error) {
	m := roleToModel(r)
	var moved int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		res, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
			bson.M{"_id": m.ID, "deleted_at": nil},
			bson.M{"$set": roleSet(m)},
		)
		if err != nil {
			return classify("rename role", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
		}

		res, err = s.mdb.Collection(colUsers).UpdateMany(ctx,
			bson.M{"role": oldName, "deleted_at": nil},
			bson.M{"$set": bson.M{"role": r.Name, "updated_at": r.UpdatedAt}},
		)
		if err != nil {
			return classify("move role holders", err)
		}
		moved = res.MatchedCount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID, name string, at time.Time) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		holders, err := s.mdb.Collection(colUsers).CountDocuments(ctx,
			bson.M{"role": name, "deleted_at": nil})
		if err != nil {
			return classify("count role holders", err)
		}
		if holders > 0 {
			return &store.InUseError{Users: holders}
		}

		res, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
			bson.M{"_id": roleID.String(), "deleted_at": nil},
			bson.M{"$set": bson.M{
				"deleted_at": at,
				"status":     string(role.StatusInactive),
				"updated_at": at,
			}},
		)
		if err != nil {
			return classify("delete role", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) RenamePermission(ctx context.Context, p *permission.Permission, oldName string) (int64, int64, error) {
	m := permissionToModel(p)
	var roles, users int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		roles, users = 0, 0
		res, err := s.mdb.Collection(colPermissions).UpdateOne(ctx,
			bson.M{"_id": m.ID, "deleted_at": nil},
			bson.M{"$set": permissionSet(m)},
		)
		if err != nil {
			return classify("rename permission", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("permission %s: %w", p.ID, store.ErrNotFound)
		}

		var holders []roleModel
		if err := findAll(ctx, s.mdb.Collection(colRoles), bson.M{"permissions": oldName, "deleted_at": nil}, &holders); err != nil {
			return classify("find roles holding permission", err)
		}
		for _, h := range holders {
			next, _ := capability.Replace(h.Permissions, oldName, p.Name)
			_, err := s.mdb.Collection(colRoles).UpdateOne(ctx,
				bson.M{"_id": h.ID},
				bson.M{"$set": bson.M{"permissions": next, "updated_at": p.UpdatedAt}},
			)
			if err != nil {
				return classify("rewrite role permissions", err)
			}
			roles++
		}

		var grantees []userModel
		if err := findAll(ctx, s.mdb.Collection(colUsers), bson.M{"grants": oldName, "deleted_at": nil}, &grantees); err != nil {
			return classify("find users holding grant", err)
		}
		for _, g := range grantees {
			next, _ := capability.Replace(g.Grants, oldName, p.Name)
			_, err := s.mdb.Collection(colUsers).UpdateOne(ctx,
				bson.M{"_id": g.ID},
				bson.M{"$set": bson.M{"grants": next, "updated_at": p.UpdatedAt}},
			)
			if err != nil {
				return classify("rewrite user grants", err)
			}
			users++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return roles, users, nil
}

func (s *Store) DeletePermissions(ctx context.Context, ids []id.PermissionID, names []string, at time.Time) error {
	idList := make([]string, len(ids))
	for i, pid := range ids {
		idList[i] = pid.String()
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		live, err := s.mdb.Collection(colPermissions).CountDocuments(ctx,
			bson.M{"_id": bson.M{"$in": idList}, "deleted_at": nil})
		if err != nil {
			return classify("count permissions", err)
		}
		if live != int64(len(ids)) {
			return fmt.Errorf("permissions: %d of %d live: %w", live, len(ids), store.ErrNotFound)
		}

		inUse := &store.InUseError{}
		inUse.Roles, err = s.mdb.Collection(colRoles).CountDocuments(ctx,
			bson.M{"permissions": bson.M{"$in": names}, "deleted_at": nil})
		if err != nil {
			return classify("count referencing roles", err)
		}
		inUse.Users, err = s.mdb.Collection(colUsers).CountDocuments(ctx,
			bson.M{"grants": bson.M{"$in": names}, "deleted_at": nil})
		if err != nil {
			return classify("count referencing users", err)
		}
		if inUse.Roles > 0 || inUse.Users > 0 {
			return inUse
		}

		_, err = s.mdb.Collection(colPermissions).UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": idList}},
			bson.M{"$set": bson.M{
				"deleted_at": at,
				"status":     string(permission.StatusInactive),
				"updated_at": at,
			}},
		)
		if err != nil {
			return classify("delete permissions", err)
		}
		return nil
	})
}

func findAll(ctx context.Context, coll *mongod.Collection, filter bson.M, out any) error {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
