// Package camera provides the production collaborators for the live
// detection loop: an MJPEG-over-HTTP frame source and an HTTP client for
// the external object-detection service.
package camera
