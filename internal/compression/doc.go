// Package compression shrinks finished recordings before upload. A selector
// orders codec candidates by source size, an ffmpeg runner executes each
// attempt, and the compressor walks the candidate list until one meets the
// minimum shrink ratio. Compression is an optimization: when every candidate
// fails the original file is stored unmodified and the event still succeeds.
package compression
