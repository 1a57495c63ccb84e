// Package transcoder runs ffmpeg to re-encode a video to HEVC.
//
// A [Request] carries everything the encoder needs: input and output paths,
// the ffmpeg encoder identifier (hevc_nvenc, hevc_qsv, hevc_amf, libx265),
// the target video bitrate and an [AudioPlan]. Audio is either copied
// unchanged or, for legacy containers, re-encoded to AAC at a matching
// bitrate or a VBR quality level.
//
// The hardware acceleration hint is always "auto"; ffmpeg picks the decoder.
//
// [FFmpeg] never interprets ffmpeg's output. A non-zero exit status is
// reported as an [*ExitError] with the tail of stderr for diagnostics.
// Running processes are tracked so [FFmpeg.Cleanup] can kill them on
// shutdown.
package transcoder
