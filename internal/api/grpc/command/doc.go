// Package command implements the gRPC transport for the command protocol.
//
// Two services share one message shape: MonitorService carries UI commands to
// the monitor and AudioService carries playback instructions to a standalone
// audio surface. Messages are google.protobuf.Struct values holding the JSON
// form of domain requests and responses, so the descriptors are written by hand.
package command
