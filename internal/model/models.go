package model

import "time"

// Resume is the top-level versioned document owned by one user.
type Resume struct {
	ID        string // UUID
	OwnerID   string // Opaque user identifier from the identity provider
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Branch is a named, mutable pointer to the tip commit of one line of work.
type Branch struct {
	ID             string // UUID
	ResumeID       string // Foreign key to Resume
	Name           string // Normalized, unique within the resume
	Description    string
	ParentBranchID string // Branch this one was forked from; empty for main
	ForkCommitID   string // Source tip at creation time; empty if the source had no commits
	TipCommitID    string // Current tip; empty until the first commit
	IsMain         bool
	CreatedAt      time.Time
}

// HasCommits reports whether the branch points at any commit.
func (b *Branch) HasCommits() bool {
	return b.TipCommitID != ""
}

// Commit is an immutable record of one snapshot in a branch's lineage.
type Commit struct {
	ID           string    // UUID
	ResumeID     string    // Foreign key to Resume
	BranchName   string    // Branch the commit was recorded on at creation time
	ParentID     string    // Empty for a first commit created from nothing
	SnapshotHash string    // Structural hash of the snapshot (key in the vault)
	Message      string    // Non-empty, trimmed
	AuthorID     string    // Opaque user identifier
	Hash         string    // Hex SHA-256 fingerprint of the commit content
	Depth        int64     // Parent-chain depth; 1 for a root commit
	CreatedAt    time.Time // Advisory only, never used for ordering
}

// ShortHashLen is the number of hex characters shown for a commit hash.
const ShortHashLen = 7

// ShortHash returns the display form of the commit hash.
func (c *Commit) ShortHash() string {
	if len(c.Hash) <= ShortHashLen {
		return c.Hash
	}
	return c.Hash[:ShortHashLen]
}

// SnapshotRecord describes a stored snapshot blob.
type SnapshotRecord struct {
	Hash       string // xxh3-128 structural hash, hex
	BlockCount int
	Size       int64 // Encoded (pre-encryption) size in bytes
	Encrypted  bool  // Blob in the vault is encrypted
	CreatedAt  time.Time
}

// Workspace is the persisted editing session of a resume: which branch is
// checked out, which commit the working blocks were loaded from, and whether
// they have been edited since.
type Workspace struct {
	ResumeID     string
	BranchName   string
	BaseCommitID string // Empty when the branch had no commits at checkout
	Dirty        bool
	UpdatedAt    time.Time
}

// Operation is one entry of the audit log of mutating commands.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
	FinishedAt *time.Time
}
