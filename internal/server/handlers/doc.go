// Package handlers provides the HTTP handlers of the address API.
package handlers
