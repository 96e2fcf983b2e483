package rgit

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"rgit-go/internal/model"
)

// History walks parent links from the branch's current tip, yielding commits
// newest first. The sequence is lazy and can be ranged over more than once;
// each pass starts from the tip captured when History was called. limit <= 0
// means no limit.
func (s *Service) History(ctx context.Context, resumeID, branch string, limit int) (iter.Seq2[*model.Commit, error], error) {
	b, err := s.getBranch(ctx, resumeID, branch)
	if err != nil {
		return nil, err
	}
	return s.walk(ctx, b.TipCommitID, limit), nil
}

// Log collects History into a slice.
func (s *Service) Log(ctx context.Context, resumeID, branch string, limit int) ([]*model.Commit, error) {
	seq, err := s.History(ctx, resumeID, branch, limit)
	if err != nil {
		return nil, err
	}
	var commits []*model.Commit
	for c, err := range seq {
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

// walk yields the commit from and its ancestors. A commit seen twice means
// the stored graph is corrupt and ends the walk with an error.
func (s *Service) walk(ctx context.Context, from string, limit int) iter.Seq2[*model.Commit, error] {
	return func(yield func(*model.Commit, error) bool) {
		seen := make(map[string]bool)
		for id, n := from, 0; id != "" && (limit <= 0 || n < limit); n++ {
			if seen[id] {
				yield(nil, fmt.Errorf("commit %s: parent cycle detected", id))
				return
			}
			seen[id] = true

			c, err := s.database.GetCommit(ctx, id)
			if err != nil {
				yield(nil, fmt.Errorf("finding commit %s: %w", id, err))
				return
			}
			if c == nil {
				yield(nil, fmt.Errorf("commit %s: %w", id, model.ErrNotFound))
				return
			}
			if !yield(c, nil) {
				return
			}
			id = c.ParentID
		}
	}
}

// CommitsBetween returns the commits on the parent path from ancestorID
// (exclusive) to descendantID (inclusive), oldest first. An empty ancestorID
// stands for the root, so the whole lineage is returned. It fails with
// model.ErrNotAncestor if ancestorID is not reachable from descendantID.
func (s *Service) CommitsBetween(ctx context.Context, ancestorID, descendantID string) ([]*model.Commit, error) {
	var stopDepth int64
	if ancestorID != "" {
		ancestor, err := s.GetCommit(ctx, ancestorID)
		if err != nil {
			return nil, err
		}
		stopDepth = ancestor.Depth
	}
	if _, err := s.GetCommit(ctx, descendantID); err != nil {
		return nil, err
	}

	var path []*model.Commit
	for c, err := range s.walk(ctx, descendantID, 0) {
		if err != nil {
			return nil, err
		}
		if c.ID == ancestorID {
			slices.Reverse(path)
			return path, nil
		}
		if c.Depth <= stopDepth {
			break
		}
		path = append(path, c)
	}
	if ancestorID == "" {
		slices.Reverse(path)
		return path, nil
	}
	return nil, fmt.Errorf("%s is not an ancestor of %s: %w", ancestorID, descendantID, model.ErrNotAncestor)
}

// MergeBase returns the nearest common ancestor of two commits, or "" when
// their histories are disjoint. Either id may be "" (no commits).
func (s *Service) MergeBase(ctx context.Context, a, b string) (string, error) {
	if a == "" || b == "" {
		return "", nil
	}
	ca, err := s.GetCommit(ctx, a)
	if err != nil {
		return "", err
	}
	cb, err := s.GetCommit(ctx, b)
	if err != nil {
		return "", err
	}

	// Every commit has a single parent, so stepping the deeper side up to
	// equal depth and then both sides together meets at the common ancestor.
	for ca.ID != cb.ID {
		switch {
		case ca.Depth > cb.Depth:
			ca, err = s.parent(ctx, ca)
		case cb.Depth > ca.Depth:
			cb, err = s.parent(ctx, cb)
		default:
			ca, err = s.parent(ctx, ca)
			if err == nil && ca != nil {
				cb, err = s.parent(ctx, cb)
			}
		}
		if err != nil {
			return "", err
		}
		if ca == nil || cb == nil {
			return "", nil
		}
	}
	return ca.ID, nil
}

func (s *Service) parent(ctx context.Context, c *model.Commit) (*model.Commit, error) {
	if c.ParentID == "" {
		return nil, nil
	}
	return s.GetCommit(ctx, c.ParentID)
}
