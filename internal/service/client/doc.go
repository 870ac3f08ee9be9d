// Package client implements the order-alert UI commands.
//
// Each command is a single message to the monitor daemon. Setup additionally
// verifies the shop id against the count endpoint and persists it, which also
// wakes the daemon's store watcher.
package client
