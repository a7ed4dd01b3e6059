// Package txscope implements transaction demarcation over database/sql where several
// data-access calls issued from one unit of work share a single physical connection and
// commit or roll back together, without passing that connection through every call.
//
// The package is built from a few small components:
//   - An execution scope carried by a context.Context. A `TxManager` binds the connection
//     of a running transaction to that scope, keyed by its `Source`.
//   - A `Broker` that returns the bound connection when one exists and otherwise opens a
//     new connection, closing it again once the call that opened it is done.
//   - An `Executor` running parameterized statements through the broker and mapping rows
//     with a `RowMapper`, such as a `StructMapper` resolved against `db` struct tags.
//
// Only calls made with the context handed out by [TxManager.Run] (or [Transaction.Start])
// take part in a transaction. Work started on another goroutine should use [WithScope] to
// obtain an independent execution scope.
package txscope
