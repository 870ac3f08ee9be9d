// Package audioserver runs the audio surface as its own process.
//
// The monitor daemon starts it in remote audio mode and drives it over gRPC
// with the same {action, shopId} messages the UI uses.
package audioserver
