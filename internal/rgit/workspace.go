package rgit

import (
	"context"
	"fmt"

	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
	"rgit-go/internal/tree"
)

// Workspace is a resume's editing session: the checked-out branch, the commit
// its working tree was loaded from and the working tree itself.
type Workspace struct {
	model.Workspace
	Tree *tree.Tree
}

// OpenWorkspace loads the resume's editing session. A resume without a
// persisted session gets one checked out on main.
func (s *Service) OpenWorkspace(ctx context.Context, resumeID string) (*Workspace, error) {
	meta, blocks, err := s.database.GetWorkspace(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("loading workspace: %w", err)
	}
	if meta == nil {
		return s.checkoutMain(ctx, resumeID)
	}

	t, err := tree.Load(blocks, s.idgen)
	if err != nil {
		return nil, fmt.Errorf("loading working blocks: %w", err)
	}
	if meta.Dirty {
		t.MarkDirty()
	}
	return &Workspace{Workspace: *meta, Tree: t}, nil
}

func (s *Service) checkoutMain(ctx context.Context, resumeID string) (*Workspace, error) {
	if _, err := s.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	main, err := s.database.GetMainBranch(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("finding main branch: %w", err)
	}
	if main == nil {
		return nil, fmt.Errorf("main branch of %s: %w", resumeID, model.ErrBranchNotFound)
	}
	ws, err := s.checkout(ctx, resumeID, main)
	if err != nil {
		return nil, err
	}
	if err := s.SaveWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// checkout builds a clean workspace holding the branch tip's snapshot.
func (s *Service) checkout(ctx context.Context, resumeID string, b *model.Branch) (*Workspace, error) {
	tip, err := s.tipCommit(ctx, b)
	if err != nil {
		return nil, err
	}
	snap, err := s.commitSnapshot(ctx, tip)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Workspace: model.Workspace{
			ResumeID:     resumeID,
			BranchName:   b.Name,
			BaseCommitID: b.TipCommitID,
		},
		Tree: snap.Tree(s.idgen),
	}, nil
}

// SaveWorkspace persists the session and its working blocks.
func (s *Service) SaveWorkspace(ctx context.Context, ws *Workspace) error {
	ws.Dirty = ws.Tree.Dirty()
	ws.UpdatedAt = s.clock.Now()
	if err := s.database.SaveWorkspace(ctx, &ws.Workspace, ws.Tree.Blocks()); err != nil {
		return fmt.Errorf("saving workspace: %w", err)
	}
	return nil
}

// EditWorkspace applies fn to the working tree and saves the result. Edits to
// one resume are serialized; nothing is saved if fn fails.
func (s *Service) EditWorkspace(ctx context.Context, resumeID string, fn func(t *tree.Tree) error) (_ *Workspace, err error) {
	defer s.observe("edit", s.clock.Now(), &err)

	unlock := s.locks.lock(resumeID)
	defer unlock()

	ws, err := s.OpenWorkspace(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if err := fn(ws.Tree); err != nil {
		return nil, err
	}
	if err := s.SaveWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	s.logger.Debug("workspace edited", "resume", resumeID, "branch", ws.BranchName, "blocks", ws.Tree.Len())
	return ws, nil
}

// ImportDocument replaces the working tree with the blocks laid out from doc.
func (s *Service) ImportDocument(ctx context.Context, resumeID string, doc snapshot.Document) (*Workspace, error) {
	return s.EditWorkspace(ctx, resumeID, func(t *tree.Tree) error {
		for _, root := range t.Children("") {
			if err := t.RemoveBlock(root.ID); err != nil {
				return err
			}
		}
		return snapshot.AppendDocument(t, doc)
	})
}

// SwitchBranch checks out branch, replacing the working tree with the
// branch tip's snapshot. It refuses to discard uncommitted edits unless
// force is set.
func (s *Service) SwitchBranch(ctx context.Context, resumeID, branch string, force bool) (_ *Workspace, err error) {
	defer s.observe("switch_branch", s.clock.Now(), &err)

	unlock := s.locks.lock(resumeID)
	defer unlock()

	b, err := s.getBranch(ctx, resumeID, branch)
	if err != nil {
		return nil, err
	}
	current, err := s.OpenWorkspace(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if current.Tree.Dirty() && !force {
		return nil, fmt.Errorf("%w on %s: commit them or force the checkout", model.ErrUncommittedChanges, current.BranchName)
	}

	ws, err := s.checkout(ctx, resumeID, b)
	if err != nil {
		return nil, err
	}
	if err := s.SaveWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	s.logger.Info("branch checked out", "resume", resumeID, "branch", b.Name, "commit", b.TipCommitID,
		"discarded", current.Tree.Dirty())
	return ws, nil
}

// CommitWorkspace commits the working tree to the checked-out branch. The
// workspace's base commit is the expected tip, so a commit made elsewhere in
// the meantime fails with model.ErrConcurrentModification.
func (s *Service) CommitWorkspace(ctx context.Context, resumeID, message, authorID string) (*CommitResult, error) {
	unlock := s.locks.lock(resumeID)
	defer unlock()

	ws, err := s.OpenWorkspace(ctx, resumeID)
	if err != nil {
		return nil, err
	}

	expected := ws.BaseCommitID
	res, err := s.Commit(ctx, CommitRequest{
		ResumeID:    resumeID,
		Branch:      ws.BranchName,
		Snapshot:    snapshot.Build(ws.Tree),
		Message:     message,
		AuthorID:    authorID,
		ExpectedTip: &expected,
	})
	if err != nil {
		return nil, err
	}

	ws.BaseCommitID = res.ID
	ws.Tree.MarkClean()
	if err := s.SaveWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return res, nil
}
