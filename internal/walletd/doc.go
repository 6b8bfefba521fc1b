// Package walletd is a JSON-RPC 2.0 client for the wallet daemon.
//
// Every call is bounded by the configured timeout, paced by a token-bucket
// rate limiter and, for transport failures only, retried according to a
// retry.Policy. JSON-RPC application errors are returned immediately. All
// failures surface as foundation errors of category "daemon" carrying the RPC
// method (and address, where the call has one) in their context.
package walletd
