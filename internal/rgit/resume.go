package rgit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rgit-go/internal/model"
)

const (
	mainBranchName        = "main"
	mainBranchDescription = "Default branch"
)

// CreateResume creates a resume owned by ownerID together with its main
// branch and an empty workspace checked out on main.
func (s *Service) CreateResume(ctx context.Context, ownerID, title string) (_ *model.Resume, err error) {
	defer s.observe("create_resume", s.clock.Now(), &err)

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("resume title is required")
	}

	now := s.clock.Now()
	resume := &model.Resume{
		ID:        s.idgen.New(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	main := &model.Branch{
		ID:          s.idgen.New(),
		ResumeID:    resume.ID,
		Name:        mainBranchName,
		Description: mainBranchDescription,
		IsMain:      true,
		CreatedAt:   now,
	}
	if err := s.database.CreateResume(ctx, resume, main); err != nil {
		return nil, fmt.Errorf("creating resume: %w", err)
	}

	ws := &model.Workspace{
		ResumeID:   resume.ID,
		BranchName: main.Name,
		UpdatedAt:  now,
	}
	if err := s.database.SaveWorkspace(ctx, ws, nil); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	s.logger.Info("resume created", "resume", resume.ID, "title", resume.Title)
	return resume, nil
}

// GetResume returns the resume or model.ErrResumeNotFound.
func (s *Service) GetResume(ctx context.Context, id string) (*model.Resume, error) {
	resume, err := s.database.GetResume(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding resume: %w", err)
	}
	if resume == nil {
		return nil, fmt.Errorf("resume %s: %w", id, model.ErrResumeNotFound)
	}
	return resume, nil
}

// ListResumes returns the resumes owned by ownerID.
func (s *Service) ListResumes(ctx context.Context, ownerID string) ([]*model.Resume, error) {
	resumes, err := s.database.ListResumes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}
	return resumes, nil
}

// DeleteResume deletes the resume and everything recorded for it. Snapshot
// blobs stay in the vault since other resumes may share them.
func (s *Service) DeleteResume(ctx context.Context, id string) (err error) {
	defer s.observe("delete_resume", s.clock.Now(), &err)

	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.GetResume(ctx, id); err != nil {
		return err
	}
	if err := s.database.DeleteResume(ctx, id); err != nil {
		return fmt.Errorf("deleting resume: %w", err)
	}

	s.logger.Info("resume deleted", "resume", id)
	return nil
}
