package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/store/memory"
)

func newInstrumentedEngine(t *testing.T) (*aegis.Engine, *Collector) {
	t.Helper()
	c := New(prometheus.NewRegistry())
	eng, err := aegis.NewEngine(aegis.WithStore(memory.New()), aegis.WithPlugin(c))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	return eng, c
}

func TestSeedMetrics(t *testing.T) {
	_, c := newInstrumentedEngine(t)

	if got := testutil.ToFloat64(c.SeededTotal.WithLabelValues("role", "created")); got != 4 {
		t.Fatalf("expected 4 seeded roles, got %v", got)
	}
	if got := testutil.ToFloat64(c.SeededTotal.WithLabelValues("permission", "updated")); got != 0 {
		t.Fatalf("expected no updated permissions, got %v", got)
	}
}

func TestCheckMetrics(t *testing.T) {
	ctx := context.Background()
	eng, c := newInstrumentedEngine(t)

	checks := []*aegis.CheckRequest{
		{Actor: aegis.Actor{Role: "admin"}, Capability: "news:read"},
		{Actor: aegis.Actor{Role: "user", Permissions: []string{"news:read"}}, Capability: "news:read"},
		{Actor: aegis.Actor{Role: "user", Permissions: []string{"news:read"}}, Capability: "news:delete"},
		{Actor: aegis.Actor{}, Capability: "news:read"},
	}
	for _, req := range checks {
		if _, err := eng.Check(ctx, req); err != nil {
			t.Fatal(err)
		}
	}

	for decision, want := range map[aegis.Decision]float64{
		aegis.DecisionAllowAdmin:       1,
		aegis.DecisionAllow:            1,
		aegis.DecisionDenyNoPermission: 1,
		aegis.DecisionDenyNoRole:       1,
	} {
		if got := testutil.ToFloat64(c.ChecksTotal.WithLabelValues(string(decision))); got != want {
			t.Errorf("decision %s: expected %v, got %v", decision, want, got)
		}
	}
	if n := testutil.CollectAndCount(c.CheckDuration); n != 1 {
		t.Fatalf("expected histogram collected, got %d", n)
	}
}

func TestCascadeMetrics(t *testing.T) {
	ctx := context.Background()
	eng, c := newInstrumentedEngine(t)

	r, err := eng.CreateRole(ctx, aegis.CreateRoleInput{Name: "writer"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"writer_a", "writer_b"} {
		if _, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: name, Role: "writer"}); err != nil {
			t.Fatal(err)
		}
	}
	newName := "author"
	if _, err := eng.UpdateRole(ctx, r.ID, aegis.RolePatch{Name: &newName}); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(c.CascadeTotal.WithLabelValues("user_roles")); got != 2 {
		t.Fatalf("expected 2 moved users, got %v", got)
	}
	if got := testutil.ToFloat64(c.MutationsTotal.WithLabelValues("user", "create")); got != 2 {
		t.Fatalf("expected 2 user creations, got %v", got)
	}
	if got := testutil.ToFloat64(c.MutationsTotal.WithLabelValues("role", "rename")); got != 1 {
		t.Fatalf("expected 1 role rename, got %v", got)
	}
}

func TestSetGrantsMetrics(t *testing.T) {
	ctx := context.Background()
	eng, c := newInstrumentedEngine(t)

	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "granted", Role: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.SetUserGrants(ctx, u.ID, []string{"news:publish"}); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(c.MutationsTotal.WithLabelValues("user", "set_grants")); got != 1 {
		t.Fatalf("expected 1 grant replacement, got %v", got)
	}
}
