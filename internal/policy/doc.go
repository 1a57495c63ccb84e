// Package policy holds the process-wide conversion policy.
//
// A [Policy] is built once at startup with [New] and never mutated. It
// decides which hardware encoder is used, which files are large enough to be
// worth converting, how far the bitrate of each legacy codec is scaled down,
// and which containers may be kept as-is.
//
// # Hardware accelerators
//
// [HWAccel] is a closed enumeration. Every accelerator maps to exactly one
// HEVC encoder:
//
//	nvidia -> hevc_nvenc
//	intel  -> hevc_qsv
//	amd    -> hevc_amf
//	cpu    -> libx265
//
// The mapping tables are checked at compile time, so adding an accelerator
// without an encoder entry does not build.
//
// # Bitrate scaling
//
// Only codecs listed in the scale table are eligible for conversion. The
// target bitrate is floor(source × factor) with every factor in (0, 1].
package policy
