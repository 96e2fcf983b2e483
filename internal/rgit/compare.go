package rgit

import (
	"context"
	"fmt"

	"rgit-go/internal/diff"
	"rgit-go/internal/model"
)

// Diff compares the snapshots designated by two references.
func (s *Service) Diff(ctx context.Context, resumeID, refA, refB string, opts ...diff.Option) (_ []diff.Field, err error) {
	defer s.observe("diff", s.clock.Now(), &err)

	a, err := s.ResolveSnapshot(ctx, resumeID, refA)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", refA, err)
	}
	b, err := s.ResolveSnapshot(ctx, resumeID, refB)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", refB, err)
	}

	fields := diff.Diff(a, b, s.diffOptions(opts)...)
	for _, f := range fields {
		s.metrics.RecordDiffField(string(f.Status))
	}
	return fields, nil
}

// Comparison relates two branches through their nearest common ancestor.
type Comparison struct {
	BranchA   *model.Branch
	BranchB   *model.Branch
	MergeBase string          // "" when the histories are disjoint
	OnlyA     []*model.Commit // commits reachable only from A, oldest first
	OnlyB     []*model.Commit // commits reachable only from B, oldest first
	Fields    []diff.Field    // changes from A's tip to B's tip
}

// CompareBranches computes the merge base of two branches, the commits unique
// to each side and the diff between their tips.
func (s *Service) CompareBranches(ctx context.Context, resumeID, nameA, nameB string, opts ...diff.Option) (_ *Comparison, err error) {
	defer s.observe("compare", s.clock.Now(), &err)

	a, err := s.getBranch(ctx, resumeID, nameA)
	if err != nil {
		return nil, err
	}
	b, err := s.getBranch(ctx, resumeID, nameB)
	if err != nil {
		return nil, err
	}

	base, err := s.MergeBase(ctx, a.TipCommitID, b.TipCommitID)
	if err != nil {
		return nil, fmt.Errorf("finding merge base: %w", err)
	}

	cmp := &Comparison{BranchA: a, BranchB: b, MergeBase: base}
	if a.HasCommits() {
		if cmp.OnlyA, err = s.CommitsBetween(ctx, base, a.TipCommitID); err != nil {
			return nil, err
		}
	}
	if b.HasCommits() {
		if cmp.OnlyB, err = s.CommitsBetween(ctx, base, b.TipCommitID); err != nil {
			return nil, err
		}
	}

	tipA, err := s.tipCommit(ctx, a)
	if err != nil {
		return nil, err
	}
	tipB, err := s.tipCommit(ctx, b)
	if err != nil {
		return nil, err
	}
	snapA, err := s.commitSnapshot(ctx, tipA)
	if err != nil {
		return nil, err
	}
	snapB, err := s.commitSnapshot(ctx, tipB)
	if err != nil {
		return nil, err
	}
	cmp.Fields = diff.Diff(snapA, snapB, s.diffOptions(opts)...)
	return cmp, nil
}

func (s *Service) tipCommit(ctx context.Context, b *model.Branch) (*model.Commit, error) {
	if !b.HasCommits() {
		return nil, nil
	}
	return s.GetCommit(ctx, b.TipCommitID)
}
