package cachekey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDependencies(t *testing.T) {
	assert := require.New(t)

	tcs := map[string]struct {
		query string
		want  []string
	}{
		"select": {
			query: `SELECT name FROM users WHERE age > ?`,
			want:  []string{"users"},
		},
		"bracketed join": {
			query: `SELECT * FROM [dbo].[Products] p INNER JOIN [dbo].[Categories] AS c ON p.CategoryId = c.Id`,
			want:  []string{"categories", "products"},
		},
		"insert with column list": {
			query: `INSERT INTO "Orders" ("Id", "Total") VALUES ($1, $2)`,
			want:  []string{"orders"},
		},
		"update": {
			query: `UPDATE accounts SET balance = balance - $1 WHERE id = $2`,
			want:  []string{"accounts"},
		},
		"delete": {
			query: `DELETE FROM sessions WHERE expires_at < now()`,
			want:  []string{"sessions"},
		},
		"from list and subqueries": {
			query: `SELECT a.id FROM a, b, (SELECT id FROM c) AS x WHERE a.id IN (SELECT id FROM d)`,
			want:  []string{"a", "b", "c", "d"},
		},
		"function from": {
			query: `SELECT EXTRACT(YEAR FROM created_at) FROM orders`,
			want:  []string{"orders"},
		},
		"cte": {
			query: `WITH recent AS (SELECT * FROM orders) SELECT * FROM recent JOIN customers USING (customer_id)`,
			want:  []string{"customers", "orders"},
		},
		"comments and strings": {
			query: "SELECT 'FROM fake' AS s /* FROM hidden */ FROM real_table -- FROM nope",
			want:  []string{"real_table"},
		},
		"for update": {
			query: `SELECT * FROM t FOR UPDATE`,
			want:  []string{"t"},
		},
		"upsert": {
			query: `INSERT INTO t (a) VALUES (1) ON CONFLICT (a) DO UPDATE SET a = 1`,
			want:  []string{"t"},
		},
		"case and duplicates": {
			query: `select * from Users u join USERS v on u.id = v.parent_id`,
			want:  []string{"users"},
		},
		"truncate": {
			query: `TRUNCATE TABLE audit_log`,
			want:  []string{"audit_log"},
		},
		"schema qualified": {
			query: "SELECT * FROM public.users JOIN `shop`.`items` ON true",
			want:  []string{"items", "users"},
		},
		"table function": {
			query: `SELECT * FROM generate_series(1, 10)`,
			want:  []string{},
		},
		"no tables": {
			query: `SELECT 1`,
			want:  []string{},
		},
		"dangling from": {
			query: `SELECT * FROM`,
			want:  []string{},
		},
		"empty": {
			query: ``,
			want:  []string{},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			got := ExtractDependencies(tc.query)
			assert.Equal(tc.want, got)
			assert.Equal(got, ExtractDependencies(tc.query))
		})
	}
}

func TestExtractOrderIndependent(t *testing.T) {
	assert := require.New(t)

	assert.Equal(
		ExtractDependencies(`SELECT * FROM b JOIN a ON a.id = b.id`),
		ExtractDependencies(`SELECT * FROM a JOIN b ON a.id = b.id`),
	)
}

func TestDependenciesOverride(t *testing.T) {
	assert := require.New(t)

	query := `SELECT * FROM users`
	assert.Equal([]string{"users"}, Dependencies(query, Policy{}))
	assert.Equal([]string{"audit", "orders"},
		Dependencies(query, Policy{Dependencies: []string{"Orders", "[dbo].[Orders]", " audit ", ""}}))
	assert.Equal([]string{}, Dependencies(query, Policy{Dependencies: []string{}}))
	assert.Equal([]string{"my.table", "orders"},
		Dependencies(query, Policy{Dependencies: []string{`"my.table"`, `sales."Orders"`, "public.`my.table`"}}))
}
