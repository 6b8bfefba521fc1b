// Package events publishes address lifecycle events.
//
// Publishing is best effort: the pool logs publish failures and never fails
// an operation because an event could not be delivered.
package events
