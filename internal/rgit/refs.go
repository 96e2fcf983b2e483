package rgit

import (
	"context"
	"fmt"

	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
)

// minHashPrefix is the shortest hash prefix accepted as a reference.
const minHashPrefix = 4

// ResolveCommit resolves ref, which is a branch name, a commit id or a unique
// prefix of a commit hash, to a commit of the resume. A branch without
// commits resolves to (nil, nil).
func (s *Service) ResolveCommit(ctx context.Context, resumeID, ref string) (*model.Commit, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty reference: %w", model.ErrNotFound)
	}

	branch, err := s.database.GetBranch(ctx, resumeID, ref)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if branch != nil {
		if !branch.HasCommits() {
			return nil, nil
		}
		return s.GetCommit(ctx, branch.TipCommitID)
	}

	c, err := s.database.GetCommit(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("finding commit: %w", err)
	}
	if c != nil && c.ResumeID == resumeID {
		return c, nil
	}

	if len(ref) >= minHashPrefix {
		matches, err := s.database.FindCommitsByHashPrefix(ctx, resumeID, ref)
		if err != nil {
			return nil, fmt.Errorf("finding commits by hash: %w", err)
		}
		switch len(matches) {
		case 0:
		case 1:
			return matches[0], nil
		default:
			return nil, fmt.Errorf("%w: %s matches %d commits", model.ErrAmbiguousRef, ref, len(matches))
		}
	}

	if _, err := s.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("reference %s: %w", ref, model.ErrNotFound)
}

// ResolveSnapshot resolves ref as ResolveCommit does and returns the snapshot
// it designates. A branch without commits yields the empty snapshot.
func (s *Service) ResolveSnapshot(ctx context.Context, resumeID, ref string) (*snapshot.Snapshot, error) {
	c, err := s.ResolveCommit(ctx, resumeID, ref)
	if err != nil {
		return nil, err
	}
	return s.commitSnapshot(ctx, c)
}
