// Package orders is the HTTP client for the remote pending-order count endpoint.
package orders
