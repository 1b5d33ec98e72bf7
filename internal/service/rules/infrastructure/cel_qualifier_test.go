package infrastructure

import (
	"testing"
)

func dealFacts(score float64, discount int, category string) map[string]interface{} {
	return map[string]interface{}{
		"score":    score,
		"discount": discount,
		"category": category,
		"price":    19.99,
	}
}

func TestEvaluateFilterExpressions(t *testing.T) {
	q, err := NewCELQualifier()
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		expr  string
		facts map[string]interface{}
		want  bool
	}{
		{"score and discount pass", `deal.score >= 7.0 && deal.discount >= 20`, dealFacts(8.5, 35, "electronics"), true},
		{"score too low", `deal.score >= 7.0 && deal.discount >= 20`, dealFacts(5.0, 35, "electronics"), false},
		{"discount too low", `deal.score >= 7.0 && deal.discount >= 20`, dealFacts(8.5, 10, "electronics"), false},
		{"category match", `deal.category == "electronics"`, dealFacts(8.5, 35, "electronics"), true},
		{"category mismatch", `deal.category == "toys"`, dealFacts(8.5, 35, "electronics"), false},
		{"membership", `deal.category in ["electronics", "home"]`, dealFacts(8.5, 35, "home"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := q.Evaluate(tc.expr, tc.facts)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("%s = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluateCompileErrorSurfaces(t *testing.T) {
	q, err := NewCELQualifier()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Evaluate(`deal.score >=`, dealFacts(8.5, 35, "x")); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestEvaluateNonBoolResultRejected(t *testing.T) {
	q, err := NewCELQualifier()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Evaluate(`deal.score`, dealFacts(8.5, 35, "x")); err == nil {
		t.Fatal("expected error when expression does not produce a bool")
	}
}

func TestProgramCacheReuse(t *testing.T) {
	q, err := NewCELQualifier()
	if err != nil {
		t.Fatal(err)
	}
	expr := `deal.discount >= 20`
	if _, err := q.Evaluate(expr, dealFacts(1, 25, "x")); err != nil {
		t.Fatal(err)
	}
	if len(q.programs) != 1 {
		t.Fatalf("cache size = %d, want 1", len(q.programs))
	}
	if _, err := q.Evaluate(expr, dealFacts(1, 5, "x")); err != nil {
		t.Fatal(err)
	}
	if len(q.programs) != 1 {
		t.Fatalf("cache grew on repeat evaluation: %d entries", len(q.programs))
	}
}
