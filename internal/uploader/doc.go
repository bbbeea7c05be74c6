// Package uploader moves finished event files to remote object storage. A
// bounded worker pool drains a FIFO job queue; large files upload as
// ordered, independently retryable multipart chunks. Jobs are idempotent
// per destination key: resubmitting a succeeded key returns the cached URL
// and resubmitting an in-flight key is rejected.
package uploader
