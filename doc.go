// Package trino is a client for the Trino statement protocol, with Presto
// header compatibility.
//
// A statement is submitted with POST /v1/statement and its results are pulled
// page by page by following the nextUri of each response. The client tracks
// the statement through four states (RUNNING, FINISHED, CLIENT_ABORTED and
// CLIENT_ERROR) and never polls again once a terminal state is reached.
//
// # Getting Started
//
// Build a session and a client, then iterate the result set:
//
//	session, err := trino.NewSession("http://trino-coordinator:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session = session.WithUser("alice").WithCatalog("hive").WithSchema("default")
//
//	client := trino.NewClient()
//	defer client.Close()
//
//	rs := client.Execute(session, "SELECT id, name FROM users")
//	defer rs.Close()
//	for rs.More() {
//	    ok, err := rs.Next(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if !ok {
//	        continue // empty page, the query is still running
//	    }
//	    row, _ := rs.CurrentRow()
//	    name, _ := trino.RowValueByName[string](row, "name")
//	    fmt.Println(name)
//	}
//
// # Sessions
//
// A Session is immutable. Every With* method returns a modified copy, so one
// session can be shared between goroutines and specialized per statement:
//
//	prod := session.WithSchema("prod")
//	staging := prod.WithSchema("staging").WithProperty("query_max_run_time", "1h")
//
// # Low-level protocol
//
// StatementClient exposes the protocol state machine directly. Submit performs
// the initial POST and FetchNext follows one continuation per call; Current
// and State report the latest page and lifecycle state.
//
// # database/sql
//
// Importing the package registers the "trino" and "presto" drivers:
//
//	db, err := sql.Open("trino", "trino://alice@localhost:8080/hive/default?query_max_run_time=1h&timezone=UTC")
//
// Unrecognized DSN parameters become session properties. Arrays, maps and
// rows scan into NullSlice, NullMap and NullRow. Transactions are not
// supported.
//
// # Presto Compatibility
//
// WithPrestoHeaders rewrites every X-Trino-* header to X-Presto-*, which is
// what the "presto" driver and presto:// DSNs select.
package trino
