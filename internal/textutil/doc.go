// Package textutil provides small text helpers shared across the repo.
//
// Camera identifiers and event timestamps flow into filenames and object
// keys, so the helpers here normalize arbitrary user-supplied labels into
// filesystem- and URL-safe tokens.
package textutil
