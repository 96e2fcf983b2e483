package model

import "errors"

// Error kinds surfaced by the versioned-document core. Callers match them with
// errors.Is; every failure is scoped to a single operation.
var (
	// Lookup errors.
	ErrNotFound       = errors.New("not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrResumeNotFound = errors.New("resume not found")

	// Tree structure errors.
	ErrInvalidParent    = errors.New("invalid parent")
	ErrOrderMismatch    = errors.New("order does not match children")
	ErrInvalidBlockType = errors.New("invalid block type")
	ErrInvalidLayout    = errors.New("invalid layout")

	// Input validation errors.
	ErrEmptyMessage  = errors.New("empty commit message")
	ErrInvalidName   = errors.New("invalid branch name")
	ErrDuplicateName = errors.New("branch name already exists")

	// The workspace has edits that a checkout would discard.
	ErrUncommittedChanges = errors.New("uncommitted changes")

	// Protected invariant.
	ErrCannotDeleteMain = errors.New("cannot delete main branch")

	// Transient: the branch tip moved between read and write.
	ErrConcurrentModification = errors.New("concurrent modification")

	// Graph query preconditions.
	ErrNotAncestor  = errors.New("not an ancestor")
	ErrAmbiguousRef = errors.New("ambiguous reference")

	// A snapshot blob is encrypted and no decryption key was unlocked.
	ErrLocked = errors.New("snapshot store is locked")
)
