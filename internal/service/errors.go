package service

import "errors"

// Typed failures surfaced to the API boundary. Per-email and per-item failures
// inside a scan are absorbed into counters and never carry these.
var (
	// ErrNotFound: referenced user or item doesn't exist for the caller.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed: the operation needs earlier state, e.g. an
	// incremental scan before any initial scan.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrValidation: caller-correctable input problem (bad window, missing price).
	ErrValidation = errors.New("validation failed")

	// ErrConflict: state-machine violation, e.g. approving a rejected item.
	ErrConflict = errors.New("conflict")

	// ErrExternal: the mailbox provider or extractor failed.
	ErrExternal = errors.New("external service failure")
)
