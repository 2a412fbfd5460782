package vocabulary

import (
	"reflect"
	"testing"
)

func TestFlatMappingRoundTrip(t *testing.T) {
	m := FlatMapping{}
	path := m.ToVaultPath("financial.annual_income", "vqp:financial:v1")
	want := []string{"financial", "annual_income"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
	field := m.ToVocabularyField(path, "vqp:financial:v1")
	if field != "financial.annual_income" {
		t.Errorf("got %q", field)
	}
}

func TestStandardMappingNamespaces(t *testing.T) {
	m := StandardMapping{}
	path := m.ToVaultPath("age", "vqp:identity:v1")
	want := []string{"personal", "age"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
	field := m.ToVocabularyField(path, "vqp:identity:v1")
	if field != "age" {
		t.Errorf("got %q", field)
	}
}

// TestStandardMappingAgeGateScenario proves the age-gate seed scenario
// resolves correctly: a vault populated as {personal:{age:25}} under
// vqp:identity:v1 must be reached from the field name "age".
func TestStandardMappingAgeGateScenario(t *testing.T) {
	m := StandardMapping{}
	path := m.ToVaultPath("age", "vqp:identity:v1")
	want := []string{"personal", "age"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got vault path %v, want %v", path, want)
	}
}

func TestStandardMappingMetricsNamespace(t *testing.T) {
	m := StandardMapping{}
	path := m.ToVaultPath("cpu_utilization", "vqp:metrics:v1")
	want := []string{"system", "cpu_utilization"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
}

func TestStandardMappingUnknownVocabularyFallsBack(t *testing.T) {
	m := StandardMapping{}
	path := m.ToVaultPath("x.y", "vqp:unknown:v1")
	want := []string{"x", "y"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
}

func TestStandardMappingMismatchedPrefixFallsBack(t *testing.T) {
	m := StandardMapping{}
	field := m.ToVocabularyField([]string{"financial", "annual_income"}, "vqp:identity:v1")
	if field != "financial.annual_income" {
		t.Errorf("got %q", field)
	}
}
