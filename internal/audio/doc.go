// Package audio implements the audio surface: the isolated component that
// owns the sound resources and turns playback instructions into sound.
//
// A Surface holds two tracks, a one-shot notification clip and a looping
// clip, and exposes PlayOnce, StartLoop, StopLoop and RunTestSequence. The
// Mailbox runs a surface behind a request/response channel so callers only
// ever exchange messages with it. Sinks produce the actual sound either
// through an OS player command (paplay, aplay, afplay, PowerShell) or,
// when none is installed, through the system beeper.
package audio
