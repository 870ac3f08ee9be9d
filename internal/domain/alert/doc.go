// Package alert contains the core domain types of the order alert agent.
//
// It defines the monitor state machine's data (MonitorState), the persisted
// shop configuration (ShopConfig), the command protocol shared by the UI,
// the monitor and the audio surface (Request/Response), and the events the
// monitor publishes while it runs.
package alert
