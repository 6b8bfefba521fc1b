// Package pool allocates, mints, reconciles and releases deposit addresses.
//
// Service coordinates three parties that share no transaction: the address
// store, the wallet daemon and any number of concurrent callers.
//
//   - Allocate reuses the oldest free record before minting. The take step is
//     Store.Claim, a conditional update that only succeeds while the record is
//     still free, retried a bounded number of times before falling back to a
//     fresh mint. No address is ever handed to two owners.
//   - UpdateWalletBalance is fail-soft: each daemon address is reconciled
//     independently and failures are collected rather than aborting the run.
//   - Release disables the record first and only then asks the daemon to
//     forget the address, so a daemon failure leaves a stable disabled record.
//   - Audit reports drift between daemon and store without changing either.
package pool
