// Package cassette converts cassette tape saves of 8-bit home computers
// between raw program bytes, tape blocks and audio.
//
// A Codec resolves platforms through a Registry. The default registry holds
// the FM-7, JR-200, MB-6885 and PC-8001 block protocols. Audio is read and
// written as 8-bit unsigned mono PCM in WAV or AIFF containers:
//
//   - BlocksFromBin / BinFromBlocks
//   - BlocksFromCas / CasFromBlocks
//   - BlocksFromObj
//   - BlocksFromWav / WavFromBlocks
//   - BlocksFromAiff / AiffFromBlocks
//   - Describe
//
// Errors carry a tapeerr kind and can be matched with errors.Is against the
// tapeerr sentinels.
package cassette
