// Package server runs the order monitor daemon.
//
// The daemon owns the monitor, its audio surface (in process or as a separate
// process), the gRPC and HTTP command APIs and the store watcher that resumes
// monitoring whenever the UI writes a shop id.
package server
