package rgit

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"rgit-go/internal/model"
)

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	branchNameStrip = regexp.MustCompile(`[^a-z0-9\-_/]`)
)

// NormalizeBranchName lowercases name, collapses whitespace runs to hyphens
// and strips characters outside [a-z0-9/_-].
func NormalizeBranchName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRun.ReplaceAllString(name, "-")
	return branchNameStrip.ReplaceAllString(name, "")
}

// CreateBranch forks a new branch from source's current tip. The name is
// normalized first; the returned branch carries the normalized name.
func (s *Service) CreateBranch(ctx context.Context, resumeID, name, source, description string) (_ *model.Branch, err error) {
	defer s.observe("create_branch", s.clock.Now(), &err)

	normalized := NormalizeBranchName(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidName, name)
	}

	unlock := s.locks.lock(resumeID)
	defer unlock()

	src, err := s.getBranch(ctx, resumeID, source)
	if err != nil {
		return nil, err
	}

	existing, err := s.database.GetBranch(ctx, resumeID, normalized)
	if err != nil {
		return nil, fmt.Errorf("checking for existing branch: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateName, normalized)
	}

	branch := &model.Branch{
		ID:             s.idgen.New(),
		ResumeID:       resumeID,
		Name:           normalized,
		Description:    strings.TrimSpace(description),
		ParentBranchID: src.ID,
		ForkCommitID:   src.TipCommitID,
		TipCommitID:    src.TipCommitID,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.database.CreateBranch(ctx, branch); err != nil {
		return nil, fmt.Errorf("creating branch: %w", err)
	}

	s.logger.Info("branch created", "resume", resumeID, "branch", branch.Name, "source", src.Name, "fork", branch.ForkCommitID)
	return branch, nil
}

// DeleteBranch removes the branch pointer. Its commits stay addressable by id
// and hash. If the workspace had the branch checked out, it moves to main
// keeping its working blocks, marked dirty.
func (s *Service) DeleteBranch(ctx context.Context, resumeID, name string) (err error) {
	defer s.observe("delete_branch", s.clock.Now(), &err)

	unlock := s.locks.lock(resumeID)
	defer unlock()

	branch, err := s.getBranch(ctx, resumeID, name)
	if err != nil {
		return err
	}
	if branch.IsMain {
		return fmt.Errorf("%w: %s", model.ErrCannotDeleteMain, branch.Name)
	}

	ws, _, err := s.database.GetWorkspace(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}
	var moveTo *model.Workspace
	if ws != nil && ws.BranchName == branch.Name {
		main, err := s.database.GetMainBranch(ctx, resumeID)
		if err != nil {
			return fmt.Errorf("finding main branch: %w", err)
		}
		ws.BranchName = main.Name
		ws.BaseCommitID = main.TipCommitID
		ws.Dirty = true
		ws.UpdatedAt = s.clock.Now()
		moveTo = ws
	}

	if err := s.database.DeleteBranch(ctx, branch.ID, moveTo); err != nil {
		return fmt.Errorf("deleting branch: %w", err)
	}
	s.logger.Info("branch deleted", "resume", resumeID, "branch", branch.Name, "tip", branch.TipCommitID)
	if moveTo != nil {
		s.logger.Warn("workspace moved off deleted branch", "resume", resumeID, "from", branch.Name, "to", moveTo.BranchName)
	}
	return nil
}

// ListBranches returns the resume's branches, main first.
func (s *Service) ListBranches(ctx context.Context, resumeID string) ([]*model.Branch, error) {
	if _, err := s.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	branches, err := s.database.ListBranches(ctx, resumeID)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

// GetBranch returns the named branch of the resume.
func (s *Service) GetBranch(ctx context.Context, resumeID, name string) (*model.Branch, error) {
	return s.getBranch(ctx, resumeID, name)
}

func (s *Service) getBranch(ctx context.Context, resumeID, name string) (*model.Branch, error) {
	branch, err := s.database.GetBranch(ctx, resumeID, name)
	if err != nil {
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	if branch != nil {
		return branch, nil
	}
	if _, err := s.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", model.ErrBranchNotFound, name)
}
