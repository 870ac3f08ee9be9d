// Package launcher keeps a standalone audio surface process available to the
// monitor: it finds running instances by executable name, starts one when
// none answers, replaces an instance that never becomes healthy and stops the
// process it started on shutdown.
package launcher
