package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// Dialect renders goqu datasets as PostgreSQL with $n placeholders, ready for
// pgx.
var Dialect = goqu.Dialect("postgres")

func From(tables ...interface{}) *goqu.SelectDataset {
	return Dialect.From(tables...).Prepared(true)
}

func Insert(table string) *goqu.InsertDataset {
	return Dialect.Insert(table).Prepared(true)
}

func Update(table string) *goqu.UpdateDataset {
	return Dialect.Update(table).Prepared(true)
}

func Delete(table string) *goqu.DeleteDataset {
	return Dialect.Delete(table).Prepared(true)
}

// SQLer is satisfied by every goqu dataset.
type SQLer interface {
	ToSQL() (string, []interface{}, error)
}

// Build renders ds, wrapping builder errors with what was being built.
func Build(what string, ds SQLer) (string, []interface{}, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build %s query: %w", what, err)
	}
	return query, args, nil
}

// Cols turns a list of column names into goqu select expressions.
func Cols(names ...string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = goqu.I(n)
	}
	return out
}

// ILike matches col case-insensitively against a literal substring.
func ILike(col, substr string) exp.BooleanExpression {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return goqu.I(col).ILike("%" + r.Replace(substr) + "%")
}

// ExecOne runs a single-row write and reports NotFound when nothing matched.
func ExecOne(ctx context.Context, q Querier, what string, ds SQLer, conflicts map[string]string) error {
	query, args, err := Build(what, ds)
	if err != nil {
		return apperrors.Internal("build query", err)
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return Translate(err, what, conflicts)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("%s not found", what)
	}
	return nil
}

// Count runs ds as SELECT COUNT(*), ignoring its projection, order and window.
func Count(ctx context.Context, q Querier, what string, ds *goqu.SelectDataset) (int, error) {
	query, args, err := Build(what, ds.ClearSelect().ClearOrder().ClearLimit().ClearOffset().Select(goqu.COUNT(goqu.Star())))
	if err != nil {
		return 0, apperrors.Internal("build query", err)
	}
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, Translate(err, what, nil)
	}
	return total, nil
}
