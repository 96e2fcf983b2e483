package rgit

import (
	"context"
	"fmt"

	"rgit-go/internal/diff"
	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
)

// Status describes the editing session of a resume.
type Status struct {
	Branch     string
	BaseCommit *model.Commit // nil when the branch had no commits at checkout
	TipCommit  *model.Commit // current tip; differs from BaseCommit if others committed
	Dirty      bool
	Blocks     int
	Changes    []diff.Field // working tree against the base commit
}

// Behind reports whether the branch moved since the workspace was loaded.
func (st *Status) Behind() bool {
	return tipID(st.BaseCommit) != tipID(st.TipCommit)
}

func tipID(c *model.Commit) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// Status reports the checked-out branch, its commits and the uncommitted
// changes of the working tree.
func (s *Service) Status(ctx context.Context, resumeID string, opts ...diff.Option) (*Status, error) {
	ws, err := s.OpenWorkspace(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	b, err := s.getBranch(ctx, resumeID, ws.BranchName)
	if err != nil {
		return nil, err
	}

	st := &Status{Branch: ws.BranchName, Dirty: ws.Tree.Dirty(), Blocks: ws.Tree.Len()}
	if ws.BaseCommitID != "" {
		if st.BaseCommit, err = s.GetCommit(ctx, ws.BaseCommitID); err != nil {
			return nil, err
		}
	}
	if st.TipCommit, err = s.tipCommit(ctx, b); err != nil {
		return nil, err
	}

	base, err := s.commitSnapshot(ctx, st.BaseCommit)
	if err != nil {
		return nil, err
	}
	st.Changes = diff.Diff(base, snapshot.Build(ws.Tree), s.diffOptions(opts)...)
	return st, nil
}

// ListOperations returns the most recent audited operations, newest first.
func (s *Service) ListOperations(ctx context.Context, limit int) ([]*model.Operation, error) {
	ops, err := s.database.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
