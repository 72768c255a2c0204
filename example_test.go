package trino_test

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ethanyzhang/trino-go"
	"github.com/ethanyzhang/trino-go/trinotest"
)

// exampleServer starts a mock coordinator that knows the queries used below.
func exampleServer() *trinotest.MockTrinoServer {
	mock := trinotest.NewMockTrinoServer()
	mock.AddQuery(&trinotest.MockQueryTemplate{
		SQL: "SELECT id, name FROM users ORDER BY id",
		Columns: []trino.Column{
			{Name: "id", Type: "bigint"},
			{Name: "name", Type: "varchar"},
		},
		Data:         [][]any{{1, "Alice"}, {2, "Bob"}, {3, "Charlie"}},
		DataBatches:  2,
		QueueBatches: 2,
	})
	mock.AddQuery(&trinotest.MockQueryTemplate{
		SQL:         "SELECT name FROM users WHERE id = 2",
		Columns:     []trino.Column{{Name: "name", Type: "varchar"}},
		Data:        [][]any{{"Bob"}},
		DataBatches: 1,
	})
	mock.AddQuery(&trinotest.MockQueryTemplate{
		SQL: "SELECT * FROM missing",
		Failure: &trinotest.Failure{Error: &trino.QueryError{
			Message:       "line 1:15: Table 'memory.default.missing' does not exist",
			ErrorName:     "TABLE_NOT_FOUND",
			ErrorType:     "USER_ERROR",
			ErrorLocation: &trino.ErrorLocation{LineNumber: 1, ColumnNumber: 15},
		}},
	})
	return mock
}

// --- database/sql Interface ---

func Example_databaseSQL() {
	mock := exampleServer()
	defer mock.Close()

	dsn := "trino://alice@" + strings.TrimPrefix(mock.URL(), "http://") + "/memory/default"
	db, err := sql.Open("trino", dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(), "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			log.Fatal(err)
		}
		fmt.Println(id, name)
	}
	if err := rows.Err(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// 1 Alice
	// 2 Bob
	// 3 Charlie
}

func Example_parameterInterpolation() {
	mock := exampleServer()
	defer mock.Close()

	db, err := sql.Open("trino", "trino://"+strings.TrimPrefix(mock.URL(), "http://"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// ? placeholders are replaced client-side with SQL literals.
	var name string
	if err := db.QueryRowContext(context.Background(), "SELECT name FROM users WHERE id = ?", 2).Scan(&name); err != nil {
		log.Fatal(err)
	}
	fmt.Println(name)
	// Output: Bob
}

func Example_connectorOptions() {
	mock := exampleServer()
	defer mock.Close()

	connector, err := trino.NewConnector("trino://"+strings.TrimPrefix(mock.URL(), "http://"),
		trino.WithSessionSetup(func(s *trino.Session) *trino.Session {
			return s.WithProperty("query_max_run_time", "10m")
		}),
		trino.WithClientOptions(trino.WithRequestOptions(func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer example-token")
		})),
	)
	if err != nil {
		log.Fatal(err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	var name string
	if err := db.QueryRow("SELECT name FROM users WHERE id = 2").Scan(&name); err != nil {
		log.Fatal(err)
	}
	req := mock.Requests()[0]
	fmt.Println(name, req.Header.Get(trino.SessionHeader), req.Header.Get("Authorization"))
	// Output: Bob query_max_run_time=10m Bearer example-token
}

// --- Protocol API ---

func ExampleResultSet() {
	mock := exampleServer()
	defer mock.Close()

	session, err := trino.NewSession(mock.URL())
	if err != nil {
		log.Fatal(err)
	}
	session = session.WithUser("alice").WithCatalog("memory").WithSchema("default")

	client := trino.NewClient()
	defer client.Close()

	ctx := context.Background()
	rs := client.Execute(session, "SELECT id, name FROM users ORDER BY id")
	defer rs.Close()

	// Queued pages carry no rows: Next returns false while More stays true.
	for rs.More() {
		ok, err := rs.Next(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			continue
		}
		row, err := rs.CurrentRow()
		if err != nil {
			log.Fatal(err)
		}
		id, _ := trino.RowValue[int64](row, 0)
		name, _ := trino.RowValueByName[string](row, "NAME")
		fmt.Println(id, name)
	}
	fmt.Println(rs.State())
	// Output:
	// 1 Alice
	// 2 Bob
	// 3 Charlie
	// FINISHED
}

func ExampleStatementClient() {
	mock := exampleServer()
	defer mock.Close()

	session, err := trino.NewSession(mock.URL())
	if err != nil {
		log.Fatal(err)
	}

	stmt := trino.NewStatementClient(session, "SELECT id, name FROM users ORDER BY id")
	defer stmt.Close()

	ctx := context.Background()
	page, err := stmt.Submit(ctx)
	for err == nil && stmt.State() == trino.QueryStateRunning {
		fmt.Println(page.Stats.State, len(page.Data))
		page, err = stmt.FetchNext(ctx)
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(page.Stats.State, len(page.Data), stmt.State())
	// Output:
	// QUEUED 0
	// RUNNING 0
	// RUNNING 2
	// FINISHED 1 FINISHED
}

func ExampleQueryFailedError() {
	mock := exampleServer()
	defer mock.Close()

	session, err := trino.NewSession(mock.URL())
	if err != nil {
		log.Fatal(err)
	}
	client := trino.NewClient()
	defer client.Close()

	_, err = client.ExecuteQuery(context.Background(), session, "SELECT * FROM missing")

	var failed *trino.QueryFailedError
	if errors.As(err, &failed) {
		fmt.Println(failed.Err.ErrorName, failed.Err.ErrorLocation)
	}
	// Output: TABLE_NOT_FOUND line 1:15
}

func ExampleSession() {
	base, err := trino.NewSession("https://trino.example.com:8443")
	if err != nil {
		log.Fatal(err)
	}
	base = base.WithUser("etl").WithCatalog("hive")

	// Derived sessions never affect their parent.
	reporting := base.WithSchema("reports").WithProperty("query_max_run_time", "1h")

	fmt.Println(base.Schema() == "", reporting.Schema(), reporting.Catalog())
	fmt.Println(reporting.Properties())
	// Output:
	// true reports hive
	// [query_max_run_time=1h]
}

func ExampleWithTLSConfig() {
	client := trino.NewClient(
		trino.WithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		trino.WithPrestoHeaders(),
	)
	defer client.Close()

	fmt.Println(client.CanonicalHeader(trino.UserHeader))
	// Output: X-Presto-User
}
