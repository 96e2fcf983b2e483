package rgit

import (
	"context"

	"rgit-go/internal/model"
)

// Database provides the persistence store for resumes, branches, commits,
// snapshot records, workspaces and the operation log.
//
// Lookups return (nil, nil) when the record does not exist.
type Database interface {
	// Resume operations

	// CreateResume inserts the resume together with its main branch in one
	// transaction.
	CreateResume(ctx context.Context, resume *model.Resume, main *model.Branch) error

	GetResume(ctx context.Context, id string) (*model.Resume, error)

	// ListResumes returns the owner's resumes ordered by creation time.
	ListResumes(ctx context.Context, ownerID string) ([]*model.Resume, error)

	// DeleteResume removes the resume and, transitively, its branches,
	// commits, workspace and working blocks.
	DeleteResume(ctx context.Context, id string) error

	// Branch operations

	// CreateBranch inserts the branch. A name already taken in the resume
	// yields model.ErrDuplicateName, also when another writer got there
	// first.
	CreateBranch(ctx context.Context, branch *model.Branch) error
	GetBranch(ctx context.Context, resumeID, name string) (*model.Branch, error)
	GetMainBranch(ctx context.Context, resumeID string) (*model.Branch, error)

	// ListBranches returns the resume's branches, main first, then by name.
	ListBranches(ctx context.Context, resumeID string) ([]*model.Branch, error)

	// DeleteBranch removes the branch pointer. Commits are kept. A non-nil
	// moveTo is saved as the resume's workspace session in the same
	// transaction; working blocks are left as they are.
	DeleteBranch(ctx context.Context, branchID string, moveTo *model.Workspace) error

	// Commit operations

	// CreateCommit inserts the commit and advances the branch tip to it, in
	// one transaction, only if the tip still equals expectedTip ("" for a
	// branch without commits). Otherwise nothing is written and
	// model.ErrConcurrentModification is returned.
	CreateCommit(ctx context.Context, commit *model.Commit, branchID, expectedTip string) error

	GetCommit(ctx context.Context, id string) (*model.Commit, error)

	// FindCommitsByHashPrefix returns the resume's commits whose hash starts
	// with prefix.
	FindCommitsByHashPrefix(ctx context.Context, resumeID, prefix string) ([]*model.Commit, error)

	// Snapshot operations

	// CreateSnapshotRecord records a stored snapshot blob. Recording an
	// already known hash is a no-op.
	CreateSnapshotRecord(ctx context.Context, record *model.SnapshotRecord) error
	GetSnapshotRecord(ctx context.Context, hash string) (*model.SnapshotRecord, error)

	// Workspace operations

	// GetWorkspace returns the resume's editing session and its working
	// blocks.
	GetWorkspace(ctx context.Context, resumeID string) (*model.Workspace, []model.Block, error)

	// SaveWorkspace upserts the session and replaces its working blocks.
	SaveWorkspace(ctx context.Context, ws *model.Workspace, blocks []model.Block) error

	// Operation log

	CreateOperation(ctx context.Context, operation, parameters string) (*model.Operation, error)
	FinishOperation(ctx context.Context, id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(ctx context.Context, limit int) ([]*model.Operation, error)

	// CheckMigrations reports whether the schema is up to date.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
