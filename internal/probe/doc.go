// Package probe queries media files with ffprobe.
//
// Each query asks ffprobe for a single scalar (a codec name or a bitrate in
// bits per second) using the default writer with keys suppressed, e.g.
//
//	ffprobe -v error -select_streams v:0 -show_entries stream=codec_name \
//	    -of default=nw=1:nk=1 movie.avi
//
// ffprobe prints "N/A" when a container does not record a value. That, empty
// output and any other non-numeric bitrate parse to [Unknown] and are not
// errors. A non-zero exit status or a failure to start ffprobe is returned as
// an [*Error].
package probe
