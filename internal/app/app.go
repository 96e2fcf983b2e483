package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"rgit-go/internal/config"
	"rgit-go/internal/database"
	"rgit-go/internal/diff"
	"rgit-go/internal/encryption"
	"rgit-go/internal/metrics"
	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
	"rgit-go/internal/snapshot"
	"rgit-go/internal/tree"
	"rgit-go/internal/vault"
)

// RgitApp is the application layer between the CLI and the rgit Service.
// It constructs all dependencies from config, tracks the selected resume,
// records mutating commands in the operation log and releases everything on
// Close.
type RgitApp struct {
	cfg       *config.Config
	db        rgit.Database
	vault     rgit.Vault
	encryptor rgit.Encryptor
	metrics   *metrics.Metrics
	service   *rgit.Service
	logger    rgit.Logger
	op        *Operation
	logFile   *os.File
}

// NewRgitApp creates a fully wired RgitApp from the given config.
// op identifies the CLI command being run. The caller must call Close when
// done.
func NewRgitApp(ctx context.Context, cfg *config.Config, op *Operation) (*RgitApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	match, err := diff.ParseMatch(cfg.Diff.Match)
	if err != nil {
		return nil, err
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(ctx, cfg.Database, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.Log, cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	m := metrics.New()
	svc := rgit.NewService(db, v, enc, m, logger, rgit.RealClock{}, rgit.UUIDGenerator{})
	svc.SetDiffMatch(match)

	return &RgitApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		metrics:   m,
		service:   svc,
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// SetPassphraseSource sets where the passphrase for encrypted snapshots
// comes from. It is only asked for when an encrypted blob is read.
func (a *RgitApp) SetPassphraseSource(fn rgit.PassphraseFunc) {
	a.service.SetPassphraseSource(fn)
}

// Encrypted reports whether snapshots are encrypted at rest.
func (a *RgitApp) Encrypted() bool {
	return a.encryptor != nil
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only mutating commands call it.
func (a *RgitApp) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	rec, err := a.db.CreateOperation(ctx, a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// mutate persists the operation, runs fn and records its outcome.
func (a *RgitApp) mutate(ctx context.Context, fn func() error) error {
	if err := a.persistOperation(ctx); err != nil {
		return err
	}
	return a.op.Record(fn())
}

// InitKey generates the encryption key pair protected by passphrase.
func (a *RgitApp) InitKey(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not enabled in the config")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// CheckVault verifies that the configured vault is reachable.
func (a *RgitApp) CheckVault(ctx context.Context) error {
	if err := a.vault.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("vault %s: %w", a.cfg.Vaults[0].Name, err)
	}
	return nil
}

// Resumes

// CurrentResume returns the selected resume id.
func (a *RgitApp) CurrentResume() (string, error) {
	id, err := readCurrentResume(a.cfg.BaseDir)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoResume
	}
	return id, nil
}

// CreateResume creates a resume owned by the configured user. It becomes the
// selected resume if none is selected yet.
func (a *RgitApp) CreateResume(ctx context.Context, title string) (*model.Resume, error) {
	var r *model.Resume
	err := a.mutate(ctx, func() error {
		var err error
		if r, err = a.service.CreateResume(ctx, a.cfg.UserID, title); err != nil {
			return err
		}
		current, err := readCurrentResume(a.cfg.BaseDir)
		if err != nil {
			return err
		}
		if current == "" {
			return writeCurrentResume(a.cfg.BaseDir, r.ID)
		}
		return nil
	})
	return r, err
}

// ListResumes returns the user's resumes and the selected resume id.
func (a *RgitApp) ListResumes(ctx context.Context) ([]*model.Resume, string, error) {
	resumes, err := a.service.ListResumes(ctx, a.cfg.UserID)
	if err != nil {
		return nil, "", err
	}
	current, err := readCurrentResume(a.cfg.BaseDir)
	if err != nil {
		return nil, "", err
	}
	return resumes, current, nil
}

// UseResume selects the resume identified by ref: an id, an exact title or
// a unique id prefix.
func (a *RgitApp) UseResume(ctx context.Context, ref string) (*model.Resume, error) {
	r, err := a.findResume(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := writeCurrentResume(a.cfg.BaseDir, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteResume deletes the resume identified by ref with all of its history.
func (a *RgitApp) DeleteResume(ctx context.Context, ref string) (*model.Resume, error) {
	r, err := a.findResume(ctx, ref)
	if err != nil {
		return nil, err
	}
	err = a.mutate(ctx, func() error {
		if err := a.service.DeleteResume(ctx, r.ID); err != nil {
			return err
		}
		current, err := readCurrentResume(a.cfg.BaseDir)
		if err != nil {
			return err
		}
		if current == r.ID {
			return writeCurrentResume(a.cfg.BaseDir, "")
		}
		return nil
	})
	return r, err
}

func (a *RgitApp) findResume(ctx context.Context, ref string) (*model.Resume, error) {
	resumes, err := a.service.ListResumes(ctx, a.cfg.UserID)
	if err != nil {
		return nil, err
	}

	var byPrefix []*model.Resume
	for _, r := range resumes {
		if r.ID == ref || r.Title == ref {
			return r, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			byPrefix = append(byPrefix, r)
		}
	}
	switch {
	case ref == "" || len(byPrefix) == 0:
		return nil, fmt.Errorf("resume %q: %w", ref, model.ErrResumeNotFound)
	case len(byPrefix) > 1:
		return nil, fmt.Errorf("%w: %q matches %d resumes", model.ErrAmbiguousRef, ref, len(byPrefix))
	}
	return byPrefix[0], nil
}

// Branches

func (a *RgitApp) CreateBranch(ctx context.Context, name, from, description string) (*model.Branch, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	if from == "" {
		ws, err := a.service.OpenWorkspace(ctx, resumeID)
		if err != nil {
			return nil, err
		}
		from = ws.BranchName
	}

	var b *model.Branch
	err = a.mutate(ctx, func() error {
		b, err = a.service.CreateBranch(ctx, resumeID, name, from, description)
		return err
	})
	return b, err
}

func (a *RgitApp) DeleteBranch(ctx context.Context, name string) error {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return err
	}
	return a.mutate(ctx, func() error {
		return a.service.DeleteBranch(ctx, resumeID, name)
	})
}

// ListBranches returns the branches of the selected resume and the name of
// the checked-out one.
func (a *RgitApp) ListBranches(ctx context.Context) ([]*model.Branch, string, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, "", err
	}
	branches, err := a.service.ListBranches(ctx, resumeID)
	if err != nil {
		return nil, "", err
	}
	ws, err := a.service.OpenWorkspace(ctx, resumeID)
	if err != nil {
		return nil, "", err
	}
	return branches, ws.BranchName, nil
}

func (a *RgitApp) Checkout(ctx context.Context, branch string, force bool) (*rgit.Workspace, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	var ws *rgit.Workspace
	err = a.mutate(ctx, func() error {
		ws, err = a.service.SwitchBranch(ctx, resumeID, branch, force)
		return err
	})
	return ws, err
}

// Working tree

// Workspace returns the editing session of the selected resume.
func (a *RgitApp) Workspace(ctx context.Context) (*rgit.Workspace, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	return a.service.OpenWorkspace(ctx, resumeID)
}

// Edit applies fn to the working tree of the selected resume.
func (a *RgitApp) Edit(ctx context.Context, fn func(t *tree.Tree) error) (*rgit.Workspace, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	var ws *rgit.Workspace
	err = a.mutate(ctx, func() error {
		ws, err = a.service.EditWorkspace(ctx, resumeID, fn)
		return err
	})
	return ws, err
}

func (a *RgitApp) AddBlock(ctx context.Context, parentID string, typ model.BlockType, fields map[string]string) (model.Block, error) {
	var added model.Block
	_, err := a.Edit(ctx, func(t *tree.Tree) error {
		var err error
		added, err = t.AddBlock(parentID, typ, fields)
		return err
	})
	return added, err
}

// SetLayout applies edit to a copy of the block's layout and stores it if
// the result is valid.
func (a *RgitApp) SetLayout(ctx context.Context, id string, edit func(l *model.Layout)) error {
	_, err := a.Edit(ctx, func(t *tree.Tree) error {
		b, ok := t.Get(id)
		if !ok {
			return fmt.Errorf("block %s: %w", id, model.ErrNotFound)
		}
		layout := b.Layout
		edit(&layout)
		if err := layout.Validate(); err != nil {
			return err
		}
		return t.UpdateLayout(id, layout)
	})
	return err
}

// Import replaces the working tree with the resume document in path.
func (a *RgitApp) Import(ctx context.Context, path string) (*rgit.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := snapshot.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	var ws *rgit.Workspace
	err = a.mutate(ctx, func() error {
		ws, err = a.service.ImportDocument(ctx, resumeID, doc)
		return err
	})
	return ws, err
}

// Commits and history

func (a *RgitApp) Status(ctx context.Context) (*rgit.Status, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	return a.service.Status(ctx, resumeID)
}

func (a *RgitApp) Commit(ctx context.Context, message string) (*rgit.CommitResult, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	var res *rgit.CommitResult
	err = a.mutate(ctx, func() error {
		res, err = a.service.CommitWorkspace(ctx, resumeID, message, a.cfg.UserID)
		return err
	})
	return res, err
}

// Log returns up to limit commits of branch, newest first. An empty branch
// means the checked-out one.
func (a *RgitApp) Log(ctx context.Context, branch string, limit int) ([]*model.Commit, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	if branch == "" {
		ws, err := a.service.OpenWorkspace(ctx, resumeID)
		if err != nil {
			return nil, err
		}
		branch = ws.BranchName
	}
	return a.service.Log(ctx, resumeID, branch, limit)
}

// Diff compares two references. match overrides the configured list
// matching when set.
func (a *RgitApp) Diff(ctx context.Context, refA, refB, match string, patches bool) ([]diff.Field, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	opts, err := diffOptions(match, patches)
	if err != nil {
		return nil, err
	}
	return a.service.Diff(ctx, resumeID, refA, refB, opts...)
}

func (a *RgitApp) Compare(ctx context.Context, branchA, branchB, match string) (*rgit.Comparison, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return nil, err
	}
	opts, err := diffOptions(match, false)
	if err != nil {
		return nil, err
	}
	return a.service.CompareBranches(ctx, resumeID, branchA, branchB, opts...)
}

func diffOptions(match string, patches bool) ([]diff.Option, error) {
	var opts []diff.Option
	if match != "" {
		m, err := diff.ParseMatch(match)
		if err != nil {
			return nil, err
		}
		opts = append(opts, diff.WithMatch(m))
	}
	if patches {
		opts = append(opts, diff.WithPatches())
	}
	return opts, nil
}

// Show returns the document held by the snapshot ref designates.
func (a *RgitApp) Show(ctx context.Context, ref string) (snapshot.Document, error) {
	resumeID, err := a.CurrentResume()
	if err != nil {
		return snapshot.Document{}, err
	}
	snap, err := a.service.ResolveSnapshot(ctx, resumeID, ref)
	if err != nil {
		return snapshot.Document{}, err
	}
	return snap.Document(), nil
}

// Operations returns the most recent operations.
func (a *RgitApp) Operations(ctx context.Context, limit int) ([]*model.Operation, error) {
	return a.service.ListOperations(ctx, limit)
}

// Close finalizes the operation record, writes the metrics textfile if one
// is configured and closes all resources.
func (a *RgitApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		a.logger.Info("operation finished", "operation", a.op.Name, "id", a.op.ID, "status", a.op.Status)
		if err := a.db.FinishOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
	}

	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}
