// Package converter decides, file by file, whether a video is re-encoded
// to the target codec, and carries out the conversion safely.
//
// The pipeline for one file is:
//
//	eligibility -> probe -> bitrate policy -> path allocation -> encode
//	  -> validate -> swap
//
// Eligibility gates short-circuit in order: regular file with a supported
// extension, codec already the target (a successful no-op), codec present in
// the scale table, size above the threshold. Ineligible files are skipped,
// which is not an error.
//
// The original is removed only after a strictly smaller replacement exists
// on disk, and the replacement is then renamed into place. Encoder failures
// and outputs that are not smaller leave the original untouched and remove
// the temp file.
//
// A Converter is safe for concurrent use. Planned temp and final paths are
// reserved in memory until the job finishes so that workers converting files
// in the same directory never choose the same name.
package converter
