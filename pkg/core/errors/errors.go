package errors

import "errors"

// Fingerprinting errors. Both mean "skip this file", never "abort the run".
var (
	// ErrFileTooSmall is returned when a file is under 128 KiB and the
	// hash cannot sample 64 KiB from each end.
	ErrFileTooSmall = errors.New("moviehash: file too small to fingerprint")

	// ErrHashRead wraps any read failure on the byte source.
	ErrHashRead = errors.New("moviehash: read failed")
)

// Remote service errors.
var (
	// ErrBadStatus is returned when the XML-RPC service answers with a
	// status other than "200 OK". It aborts the remaining session steps.
	ErrBadStatus = errors.New("opensubtitles: non-success response status")

	ErrNotLoggedIn = errors.New("opensubtitles: not logged in")
)
