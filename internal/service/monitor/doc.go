// Package monitor implements the order monitor: it polls the pending-order
// count for one shop, fires the one-shot alert on new orders, keeps the
// looping alert on until the count drops to zero or the operator
// acknowledges it, and drives the audio surface through an AudioChannel.
//
// Guard flags are checked and set under a mutex that is never held while
// fetching or talking to the audio surface. Each monitoring session has a
// token; results of polls started by an earlier session are discarded.
package monitor
