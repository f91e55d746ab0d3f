package db

import (
	"strings"
	"testing"

	"github.com/doug-martin/goqu/v9"
)

func TestFrom_PreparedPlaceholders(t *testing.T) {
	ds := From("appointments").
		Select(Cols("id", "status")...).
		Where(goqu.Ex{"doctor_id": "d1", "status": "Pending"}).
		Limit(10)

	query, args, err := Build("appointments", ds)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, `"doctor_id" = $1`) || !strings.Contains(query, `"status" = $2`) {
		t.Errorf("expected numbered placeholders, got %s", query)
	}
	if len(args) < 2 || args[0] != "d1" || args[1] != "Pending" {
		t.Errorf("expected filter args in order, got %v", args)
	}
}

func TestILike_EscapesWildcards(t *testing.T) {
	query, args, err := Build("users", From("users").Where(ILike("name", "50%_off")))
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(query, "ILIKE $1") {
		t.Errorf("expected ILIKE placeholder, got %s", query)
	}
	if args[0] != `%50\%\_off%` {
		t.Errorf("expected escaped pattern, got %v", args[0])
	}
}
