package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPromScopePrefixesStatNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	scope := NewPromScope(reg, "engine")

	if err := scope.Inc("queries_received", 1); err != nil {
		t.Fatalf("Inc: %v", err)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, m := range metrics {
		if m.GetName() == "engine_queries_received" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a metric named engine_queries_received, got %+v", metrics)
	}
}

func TestPromScopeNewScopeNests(t *testing.T) {
	reg := prometheus.NewRegistry()
	root := NewPromScope(reg, "engine")
	child := root.NewScope("vault")

	if err := child.Gauge("cache_size", 3); err != nil {
		t.Fatalf("Gauge: %v", err)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, m := range metrics {
		if m.GetName() == "engine_vault_cache_size" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a nested metric named engine_vault_cache_size, got %+v", metrics)
	}
}

func TestNoopScopeNeverErrors(t *testing.T) {
	scope := NewNoopScope()
	if err := scope.Inc("x", 1); err != nil {
		t.Errorf("Inc: %v", err)
	}
	if err := scope.Gauge("x", 1); err != nil {
		t.Errorf("Gauge: %v", err)
	}
	nested := scope.NewScope("y")
	if err := nested.SetInt("z", 1); err != nil {
		t.Errorf("SetInt: %v", err)
	}
}

func TestAutoRegistererCachesByName(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newAutoRegisterer(reg)

	c1 := a.autoCounter("foo")
	c2 := a.autoCounter("foo")
	if c1 != c2 {
		t.Error("expected autoCounter to return the cached collector for a repeated name")
	}
}
