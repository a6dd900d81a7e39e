// Package metrics exports aegis activity as Prometheus metrics. It is a
// plugin: register it with aegis.WithPlugin and expose the registry it was
// built with.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/permission"
	"github.com/xraph/aegis/plugin"
	"github.com/xraph/aegis/role"
	"github.com/xraph/aegis/user"
)

// Compile-time hook checks.
var (
	_ plugin.AfterCheck        = (*Collector)(nil)
	_ plugin.PermissionCreated = (*Collector)(nil)
	_ plugin.PermissionUpdated = (*Collector)(nil)
	_ plugin.PermissionRenamed = (*Collector)(nil)
	_ plugin.PermissionDeleted = (*Collector)(nil)
	_ plugin.RoleCreated       = (*Collector)(nil)
	_ plugin.RoleUpdated       = (*Collector)(nil)
	_ plugin.RoleRenamed       = (*Collector)(nil)
	_ plugin.RoleDeleted       = (*Collector)(nil)
	_ plugin.UserCreated       = (*Collector)(nil)
	_ plugin.UserRoleChanged   = (*Collector)(nil)
	_ plugin.UserGrantsChanged = (*Collector)(nil)
	_ plugin.UserDeleted       = (*Collector)(nil)
	_ plugin.SystemSeeded      = (*Collector)(nil)
)

// Collector holds the aegis Prometheus metrics.
type Collector struct {
	ChecksTotal    *prometheus.CounterVec
	CheckDuration  prometheus.Histogram
	MutationsTotal *prometheus.CounterVec
	CascadeTotal   *prometheus.CounterVec
	SeededTotal    *prometheus.CounterVec
}

// New creates the collector and registers its metrics with registry.
func New(registry prometheus.Registerer) *Collector {
	c := &Collector{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_checks_total",
				Help: "Total number of authorization checks by decision",
			},
			[]string{"decision"},
		),
		CheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aegis_check_duration_seconds",
				Help:    "Authorization check evaluation time in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 8),
			},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_mutations_total",
				Help: "Total number of catalog, role and user mutations",
			},
			[]string{"entity", "op"},
		),
		CascadeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_cascade_documents_total",
				Help: "Documents rewritten by rename cascades",
			},
			[]string{"kind"},
		),
		SeededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_seeded_total",
				Help: "System records created or updated by seeding",
			},
			[]string{"entity", "result"},
		),
	}

	registry.MustRegister(
		c.ChecksTotal,
		c.CheckDuration,
		c.MutationsTotal,
		c.CascadeTotal,
		c.SeededTotal,
	)
	return c
}

// Name implements plugin.Plugin.
func (c *Collector) Name() string { return "metrics" }

func (c *Collector) OnAfterCheck(_ context.Context, _, result any) error {
	r, ok := result.(*aegis.CheckResult)
	if !ok {
		return nil
	}
	c.ChecksTotal.WithLabelValues(string(r.Decision)).Inc()
	c.CheckDuration.Observe(time.Duration(r.EvalTimeNs).Seconds())
	return nil
}

func (c *Collector) OnPermissionCreated(context.Context, *permission.Permission) error {
	return c.mutation("permission", "create")
}

func (c *Collector) OnPermissionUpdated(context.Context, *permission.Permission) error {
	return c.mutation("permission", "update")
}

func (c *Collector) OnPermissionRenamed(_ context.Context, _ *permission.Permission, _ string, roles, users int64) error {
	c.CascadeTotal.WithLabelValues("role_permissions").Add(float64(roles))
	c.CascadeTotal.WithLabelValues("user_grants").Add(float64(users))
	return c.mutation("permission", "rename")
}

func (c *Collector) OnPermissionDeleted(context.Context, *permission.Permission) error {
	return c.mutation("permission", "delete")
}

func (c *Collector) OnRoleCreated(context.Context, *role.Role) error {
	return c.mutation("role", "create")
}

func (c *Collector) OnRoleUpdated(context.Context, *role.Role) error {
	return c.mutation("role", "update")
}

func (c *Collector) OnRoleRenamed(_ context.Context, _ *role.Role, _ string, moved int64) error {
	c.CascadeTotal.WithLabelValues("user_roles").Add(float64(moved))
	return c.mutation("role", "rename")
}

func (c *Collector) OnRoleDeleted(context.Context, *role.Role) error {
	return c.mutation("role", "delete")
}

func (c *Collector) OnUserCreated(context.Context, *user.User) error {
	return c.mutation("user", "create")
}

func (c *Collector) OnUserRoleChanged(context.Context, *user.User, string) error {
	return c.mutation("user", "assign_role")
}

func (c *Collector) OnUserGrantsChanged(context.Context, *user.User, []string) error {
	return c.mutation("user", "set_grants")
}

func (c *Collector) OnUserDeleted(context.Context, *user.User) error {
	return c.mutation("user", "delete")
}

func (c *Collector) OnSystemSeeded(_ context.Context, entity string, created, updated int) error {
	c.SeededTotal.WithLabelValues(entity, "created").Add(float64(created))
	c.SeededTotal.WithLabelValues(entity, "updated").Add(float64(updated))
	return nil
}

func (c *Collector) mutation(entity, op string) error {
	c.MutationsTotal.WithLabelValues(entity, op).Inc()
	return nil
}
