package rgit

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rgit-go/internal/model"
	"rgit-go/internal/snapshot"
)

// CommitRequest describes a commit to record on a branch.
type CommitRequest struct {
	ResumeID string
	Branch   string
	Snapshot *snapshot.Snapshot
	Message  string
	AuthorID string

	// ExpectedTip, when non-nil, is the tip the caller based its work on
	// ("" for a branch without commits). The commit fails with
	// model.ErrConcurrentModification if the tip has moved. When nil, the
	// current tip is read and used.
	ExpectedTip *string
}

// CommitResult identifies a newly created commit.
type CommitResult struct {
	Commit    *model.Commit
	ID        string
	ShortHash string
}

// Commit records req.Snapshot on the branch and advances the branch tip. The
// new commit's parent is the tip it replaced.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (_ *CommitResult, err error) {
	defer s.observe("commit", s.clock.Now(), &err)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, model.ErrEmptyMessage
	}

	branch, err := s.getBranch(ctx, req.ResumeID, req.Branch)
	if err != nil {
		return nil, err
	}

	expected := branch.TipCommitID
	if req.ExpectedTip != nil {
		expected = *req.ExpectedTip
		if expected != branch.TipCommitID {
			s.metrics.RecordConflict()
			s.logger.Warn("commit rejected: branch tip moved", "resume", req.ResumeID, "branch", branch.Name,
				"expected", expected, "tip", branch.TipCommitID)
			return nil, fmt.Errorf("branch %s: %w", branch.Name, model.ErrConcurrentModification)
		}
	}

	depth := int64(1)
	if expected != "" {
		parent, err := s.database.GetCommit(ctx, expected)
		if err != nil {
			return nil, fmt.Errorf("finding parent commit: %w", err)
		}
		if parent == nil {
			return nil, fmt.Errorf("parent commit %s: %w", expected, model.ErrNotFound)
		}
		depth = parent.Depth + 1
	}

	snap := req.Snapshot
	if snap == nil {
		snap = snapshot.Empty()
	}
	if err := s.storeSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	c := &model.Commit{
		ID:           s.idgen.New(),
		ResumeID:     req.ResumeID,
		BranchName:   branch.Name,
		ParentID:     expected,
		SnapshotHash: snap.Hash(),
		Message:      message,
		AuthorID:     req.AuthorID,
		Depth:        depth,
		CreatedAt:    s.clock.Now(),
	}
	c.Hash = commitHash(c)

	if err := s.database.CreateCommit(ctx, c, branch.ID, expected); err != nil {
		if errors.Is(err, model.ErrConcurrentModification) {
			s.metrics.RecordConflict()
			s.logger.Warn("commit rejected: branch tip moved", "resume", req.ResumeID, "branch", branch.Name, "expected", expected)
		}
		return nil, fmt.Errorf("recording commit on %s: %w", branch.Name, err)
	}

	s.metrics.RecordCommit()
	s.logger.Info("commit created", "resume", req.ResumeID, "branch", branch.Name, "commit", c.ID,
		"hash", c.ShortHash(), "parent", c.ParentID)
	return &CommitResult{Commit: c, ID: c.ID, ShortHash: c.ShortHash()}, nil
}

// commitHash fingerprints the commit's content with SHA-256.
func commitHash(c *model.Commit) string {
	h := sha256.New()
	for _, field := range []string{
		c.ID,
		c.ResumeID,
		c.ParentID,
		c.BranchName,
		c.SnapshotHash,
		c.Message,
		c.AuthorID,
		strconv.FormatInt(c.CreatedAt.UnixNano(), 10),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetCommit returns the commit or model.ErrNotFound.
func (s *Service) GetCommit(ctx context.Context, id string) (*model.Commit, error) {
	c, err := s.database.GetCommit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding commit: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("commit %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}
