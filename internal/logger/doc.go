// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.),
//   - an adapter that lets robfig/cron report through the same logger.
//
// Services accept a context and extract the logger from it, so the monitor,
// the audio surface and the command APIs all log with their own names.
package logger
