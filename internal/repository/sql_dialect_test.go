package repository

import (
	"strings"
	"testing"
)

func TestJSONArrayContainsExprByDialect(t *testing.T) {
	sqliteExpr := jsonArrayContainsExprByDialect("sqlite", "applicable_plans")
	if !strings.Contains(sqliteExpr, "json_each(applicable_plans)") {
		t.Fatalf("sqlite expr mismatch: %s", sqliteExpr)
	}
	pgExpr := jsonArrayContainsExprByDialect("postgres", "applicable_plans")
	if !strings.Contains(pgExpr, "jsonb_array_elements_text(applicable_plans::jsonb)") {
		t.Fatalf("postgres expr mismatch: %s", pgExpr)
	}
	if strings.Count(sqliteExpr, "?") != 1 || strings.Count(pgExpr, "?") != 1 {
		t.Fatalf("expr should take exactly one arg")
	}
}

func TestBuildLikeCondition(t *testing.T) {
	condition, argCount := buildLikeCondition(nil, []string{"code", " ", "description"})
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
	if condition != "code LIKE ? OR description LIKE ?" {
		t.Fatalf("unexpected sqlite condition: %s", condition)
	}
	condition, _ = buildLikeConditionByDialect("postgresql", []string{"code"})
	if condition != "code ILIKE ?" {
		t.Fatalf("unexpected postgres condition: %s", condition)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%test%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for idx, arg := range args {
		if arg != "%test%" {
			t.Fatalf("args[%d] want %%test%% got %v", idx, arg)
		}
	}
}
