package emu

import "io"

// Config contains settings that affect emulation behavior, in the teacher's
// flat-struct style (no builder, no functional options).
type Config struct {
	Trace        bool // stored only; Machine does not log instructions
	LimitFPS     bool // stored only; Machine does not throttle StepFrame
	UseFetcherBG bool // stored only; BG always renders through the fetcher/FIFO path

	StrictHeader bool // reject BadHeaderChecksumError instead of warning

	DisableSprites    bool
	DisableWindow     bool
	DisableBackground bool

	SerialWriter io.Writer // optional sink for the serial port
}
