// Package pulse implements the audio side of cassette formats: turning PCM
// samples into timed edges, classifying the pulses between edges as mark or
// space symbols and assembling them into bits and framed bytes. Encoder does
// the inverse and produces pulse widths ready to be rendered as a square wave.
//
// A pulse is one half cycle of the square wave. A symbol (one bit) is a fixed
// number of pulses of the same width; for example FM-7 sends a one bit as four
// 2400 Hz half cycles and a zero bit as two 1200 Hz half cycles.
package pulse
