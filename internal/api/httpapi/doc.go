// Package httpapi exposes the monitor over HTTP: a JSON command endpoint,
// a status endpoint and a websocket stream of monitor events.
package httpapi
