package predicate

import "testing"

func mustEval(t *testing.T, expr interface{}, vars map[string]interface{}) interface{} {
	t.Helper()
	e := New()
	result, err := e.Evaluate(expr, vars)
	if err != nil {
		t.Fatalf("Evaluate(%v): %v", expr, err)
	}
	return result
}

func TestAgeGateStrict(t *testing.T) {
	vars := map[string]interface{}{"age": 25.0}
	expr := map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "age"}, 18.0}}
	if got := mustEval(t, expr, vars); got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestAgeGateFailing(t *testing.T) {
	vars := map[string]interface{}{"age": 25.0}
	expr := map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "age"}, 30.0}}
	if got := mustEval(t, expr, vars); got != false {
		t.Errorf("got %v, want false", got)
	}
}

func TestConjunction(t *testing.T) {
	vars := map[string]interface{}{
		"annual_income":     75000.0,
		"employment_status": "employed",
	}
	expr := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "annual_income"}, 50000.0}},
			map[string]interface{}{"==": []interface{}{map[string]interface{}{"var": "employment_status"}, "employed"}},
		},
	}
	if got := mustEval(t, expr, vars); got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestMembership(t *testing.T) {
	vars := map[string]interface{}{
		"vaccinations_completed": []interface{}{"COVID-19", "influenza"},
	}
	expr := map[string]interface{}{"in": []interface{}{"COVID-19", map[string]interface{}{"var": "vaccinations_completed"}}}
	if got := mustEval(t, expr, vars); got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestUnknownVariableIsFalseNotFault(t *testing.T) {
	vars := map[string]interface{}{"health": map[string]interface{}{}}
	expr := map[string]interface{}{"==": []interface{}{map[string]interface{}{"var": "nonexistent"}, "x"}}
	e := New()
	result, err := e.Evaluate(expr, vars)
	if err != nil {
		t.Fatalf("expected no fault for unknown variable, got %v", err)
	}
	if result != false {
		t.Errorf("got %v, want false", result)
	}
}

func TestDottedPathLookup(t *testing.T) {
	vars := map[string]interface{}{
		"personal": map[string]interface{}{"age": 21.0},
	}
	expr := map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "personal.age"}, 18.0}}
	if got := mustEval(t, expr, vars); got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestNotOperator(t *testing.T) {
	vars := map[string]interface{}{"flag": true}
	expr := map[string]interface{}{"not": map[string]interface{}{"var": "flag"}}
	if got := mustEval(t, expr, vars); got != false {
		t.Errorf("got %v, want false", got)
	}
}

func TestOrOperator(t *testing.T) {
	vars := map[string]interface{}{"a": false, "b": true}
	expr := map[string]interface{}{"or": []interface{}{map[string]interface{}{"var": "a"}, map[string]interface{}{"var": "b"}}}
	if got := mustEval(t, expr, vars); got != true {
		t.Errorf("got %v, want true", got)
	}
}

func TestUnknownOperatorFaultsStructurally(t *testing.T) {
	e := New()
	expr := map[string]interface{}{"xor": []interface{}{true, false}}
	if _, err := e.Evaluate(expr, nil); err == nil {
		t.Error("expected structural error for unknown operator")
	}
}

func TestWrongArityFaults(t *testing.T) {
	e := New()
	expr := map[string]interface{}{">=": []interface{}{1}}
	if _, err := e.Evaluate(expr, nil); err == nil {
		t.Error("expected structural error for wrong arity")
	}
}

func TestIsValidExpression(t *testing.T) {
	if !IsValidExpression(map[string]interface{}{"==": []interface{}{1, 1}}) {
		t.Error("expected valid expression to be accepted")
	}
	if IsValidExpression(map[string]interface{}{"bogus": 1}) {
		t.Error("expected invalid expression to be rejected")
	}
}

func TestExtractVariables(t *testing.T) {
	expr := map[string]interface{}{
		"and": []interface{}{
			map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "age"}, 18}},
			map[string]interface{}{"==": []interface{}{map[string]interface{}{"var": "region"}, "us"}},
		},
	}
	vars, err := ExtractVariables(expr)
	if err != nil {
		t.Fatalf("ExtractVariables: %v", err)
	}
	if len(vars) != 2 {
		t.Fatalf("got %d variables, want 2: %v", len(vars), vars)
	}
}

func TestCountNodes(t *testing.T) {
	expr := map[string]interface{}{">=": []interface{}{map[string]interface{}{"var": "age"}, 18}}
	// Node(compare) + Node(var) + Node(literal) = 3
	if got := CountNodes(expr); got != 3 {
		t.Errorf("CountNodes = %d, want 3", got)
	}
}

func TestCountNodesInvalid(t *testing.T) {
	if got := CountNodes(map[string]interface{}{"bogus": 1}); got != -1 {
		t.Errorf("CountNodes of invalid expr = %d, want -1", got)
	}
}
