// Package sqlgate exposes a blocking, connection-scoped SQL driver as
// non-blocking futures, backpressured row streams and scoped transactions.
//
// Every blocking driver call (borrow, execute, cursor fetch, commit,
// rollback, program call) runs on a bounded worker pool. Callers get a
// [Future] or a [RowStream] back immediately and decide when, or whether,
// to wait.
//
// # Key Features
//
//   - Single-shot operations: Query, Update, InsertAndGetID, InsertList
//   - Row streams: metadata-first delivery, bounded read-ahead, early Close
//   - Transactions: commit on success, rollback returning the work error unchanged
//   - Program calls: fixed-format record marshalling over a pluggable transport
//   - Schema introspection: GetTablesAsStream, GetColumns
//
// # Basic Usage
//
//	client, err := sqlgate.OpenInMemory()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	id, err := client.InsertAndGetID(ctx, "INSERT INTO users (name) VALUES (?)", "Ada").Get()
//
//	rows, err := client.Query(ctx, "SELECT id, name AS label FROM users").Get()
//	// rows[0]["label"] == "Ada"
//
// # Streams
//
//	s := client.ExecuteAsStream(ctx, sqlgate.StreamOptions{
//	    SQL:        "SELECT * FROM events ORDER BY id",
//	    Metadata:   true,
//	    BufferSize: 50,
//	})
//	defer s.Close()
//
//	for s.Next(ctx) {
//	    e := s.Element()
//	    if e.IsMetadata() {
//	        continue
//	    }
//	    handle(e.Row)
//	}
//	if err := s.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
// With ObjectMode set to sqlgate.Bool(false) the stream is an io.Reader
// producing one JSON array of row arrays.
//
// # Transactions
//
//	_, err := client.Transaction(ctx, func(ctx context.Context, tx *sqlgate.Tx) error {
//	    if _, err := tx.Update(ctx, "UPDATE account SET balance = balance - ? WHERE id = ?", 10, 1).Get(); err != nil {
//	        return err
//	    }
//	    _, err := tx.Update(ctx, "UPDATE account SET balance = balance + ? WHERE id = ?", 10, 2).Get()
//	    return err
//	}).Get()
//
// An error returned by the work function is returned unchanged after rollback.
//
// # Error Handling
//
// Sentinel errors live in the types package and are matched with errors.Is:
//
//   - types.ErrClientClosed: Operation attempted on a closed client
//   - types.ErrConnectionBusy: Second statement submitted on a transaction before the first resolved
//   - types.ErrTransactionDone: Tx used after its work function returned
//   - types.ErrNoGeneratedKey: INSERT produced no generated key
//   - types.ErrFieldOverflow: Program-call value exceeds its declared size
//
// Typed errors carry context and are matched with errors.As:
//
//	var execErr *types.SQLExecutionError
//	if errors.As(err, &execErr) {
//	    log.Printf("statement %q failed: %v", execErr.SQL, execErr.Cause)
//	}
//
// No operation is retried automatically.
package sqlgate
