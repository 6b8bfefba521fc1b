// Package errors provides the classified error primitives used across walletpool.
//
// Every failure that crosses a component boundary is a ClassifiedError carrying a
// category, a severity, a retry hint and structured context (owner, address,
// RPC method). Callers branch on the category instead of matching strings:
//
//   - CategoryNotFound: the requested address record does not exist (safe to show users)
//   - CategoryDaemon: the wallet daemon failed or timed out
//   - CategoryStore: the address store failed
//   - CategoryConflict: a compare-and-swap precondition no longer holds
//   - CategoryReconcile: a single address failed during balance reconciliation
//
// Example usage:
//
//	err := errors.DaemonError("createAddress failed").
//		WithContext("method", "createAddress").
//		WithCause(rpcErr).
//		Build()
//
// HTTPErrorAdapter and CLIErrorAdapter turn classified errors into status codes,
// JSON payloads and process exit codes.
package errors
