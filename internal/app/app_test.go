package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgit-go/internal/config"
	"rgit-go/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig("user-alex", t.TempDir())
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Vaults = []config.VaultConfig{{Type: "memory", Name: "test"}}
	cfg.Metrics.Textfile = filepath.Join(cfg.BaseDir, "rgit.prom")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, name string) *RgitApp {
	t.Helper()
	a, err := NewRgitApp(context.Background(), cfg, NewOperation(name))
	require.NoError(t, err)
	return a
}

func TestNewRgitApp_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.UserID = ""
	_, err := NewRgitApp(ctx, cfg, NewOperation("Status"))
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Vaults = nil
	_, err = NewRgitApp(ctx, cfg, NewOperation("Status"))
	assert.Error(t, err)
}

func TestRgitApp_Workflow(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a := newTestApp(t, cfg, "Workflow")

	_, err := a.Status(ctx)
	require.ErrorIs(t, err, ErrNoResume)

	r, err := a.CreateResume(ctx, "Alex Chen - Backend")
	require.NoError(t, err)
	current, err := a.CurrentResume()
	require.NoError(t, err)
	assert.Equal(t, r.ID, current)

	p, err := a.AddBlock(ctx, "", model.BlockPersonalInfo, map[string]string{"fullName": "Alex Chen"})
	require.NoError(t, err)
	require.NoError(t, a.SetLayout(ctx, p.ID, func(l *model.Layout) {
		l.Direction = model.DirectionHorizontal
	}))
	err = a.SetLayout(ctx, p.ID, func(l *model.Layout) { l.Alignment = "justify" })
	assert.ErrorIs(t, err, model.ErrInvalidLayout)

	st, err := a.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Dirty)
	assert.Equal(t, "main", st.Branch)

	first, err := a.Commit(ctx, "Add personal info")
	require.NoError(t, err)

	_, err = a.CreateBranch(ctx, "Google SWE", "", "Tailored for Google")
	require.NoError(t, err)
	_, err = a.Checkout(ctx, "google-swe", false)
	require.NoError(t, err)

	_, err = a.AddBlock(ctx, "", model.BlockSkillGroup, map[string]string{"category": "Languages", "items": "Go"})
	require.NoError(t, err)
	_, err = a.Commit(ctx, "Add skills")
	require.NoError(t, err)

	branches, checkedOut, err := a.ListBranches(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 2)
	assert.Equal(t, "google-swe", checkedOut)

	log, err := a.Log(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, first.ID, log[1].ID)

	fields, err := a.Diff(ctx, "main", "google-swe", "id", false)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Skills", fields[0].Section)

	cmp, err := a.Compare(ctx, "main", "google-swe", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, cmp.MergeBase)
	assert.Empty(t, cmp.OnlyA)
	assert.Len(t, cmp.OnlyB, 1)

	doc, err := a.Show(ctx, first.ShortHash)
	require.NoError(t, err)
	assert.Equal(t, "Alex Chen", doc.PersonalInfo.Get("fullName"))
	assert.Empty(t, doc.Skills)

	_, err = a.Diff(ctx, "main", "google-swe", "fuzzy", false)
	assert.Error(t, err)

	require.NoError(t, a.CheckVault(ctx))
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rgit_commits_total 2")
}

func TestRgitApp_OperationLog(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a := newTestApp(t, cfg, "CreateResume")
	defer a.Close()

	_, err := a.CreateResume(ctx, "Alex Chen - Backend")
	require.NoError(t, err)
	require.True(t, a.op.Persisted())

	// A failing mutation marks the operation failed.
	_, err = a.CreateBranch(ctx, "   ", "main", "")
	assert.ErrorIs(t, err, model.ErrInvalidName)
	assert.Equal(t, "error", a.op.Status)

	require.NoError(t, a.db.FinishOperation(ctx, a.op.ID, a.op.Status))
	ops, err := a.Operations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "CreateResume", ops[0].Operation)
	assert.Equal(t, "error", ops[0].Status)
	assert.NotNil(t, ops[0].FinishedAt)
}

func TestRgitApp_Resumes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a := newTestApp(t, cfg, "Resumes")
	defer a.Close()

	backend, err := a.CreateResume(ctx, "Backend")
	require.NoError(t, err)
	frontend, err := a.CreateResume(ctx, "Frontend")
	require.NoError(t, err)

	resumes, current, err := a.ListResumes(ctx)
	require.NoError(t, err)
	assert.Len(t, resumes, 2)
	assert.Equal(t, backend.ID, current, "first resume stays selected")

	r, err := a.UseResume(ctx, "Frontend")
	require.NoError(t, err)
	assert.Equal(t, frontend.ID, r.ID)

	_, err = a.UseResume(ctx, "Nope")
	assert.ErrorIs(t, err, model.ErrResumeNotFound)

	// Both ids are uuids, so any single hex digit prefix shared by both is ambiguous.
	if backend.ID[0] == frontend.ID[0] {
		_, err = a.UseResume(ctx, backend.ID[:1])
		assert.ErrorIs(t, err, model.ErrAmbiguousRef)
	}

	_, err = a.DeleteResume(ctx, frontend.ID[:8])
	require.NoError(t, err)
	_, err = a.CurrentResume()
	assert.ErrorIs(t, err, ErrNoResume)

	resumes, _, err = a.ListResumes(ctx)
	require.NoError(t, err)
	require.Len(t, resumes, 1)
	assert.Equal(t, backend.ID, resumes[0].ID)
}

func TestRgitApp_Import(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a := newTestApp(t, cfg, "Import")
	defer a.Close()

	_, err := a.CreateResume(ctx, "Backend")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"personalInfo": {"fullName": "Alex Chen", "email": "alex@example.com"},
		"education": [{"school": "State U", "degree": "BSc"}]
	}`), 0644))

	ws, err := a.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, ws.Tree.Len())
	assert.True(t, ws.Dirty)

	_, err = a.Import(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0644))
	_, err = a.Import(ctx, bad)
	assert.Error(t, err)
}

func TestRgitApp_Encryption(t *testing.T) {
	ctx := context.Background()
	// On-disk database and vault so a second app sees the first one's commits.
	cfg := config.NewConfig("user-alex", t.TempDir())
	cfg.Encryption = config.EncryptionConfig{Type: "test"}

	a := newTestApp(t, cfg, "Encryption")
	require.True(t, a.Encrypted())
	require.NoError(t, a.InitKey("secret"))
	assert.Error(t, a.InitKey("secret"), "keys already exist")

	asked := 0
	passphrase := func() (string, error) {
		asked++
		return "secret", nil
	}
	a.SetPassphraseSource(passphrase)

	_, err := a.CreateResume(ctx, "Backend")
	require.NoError(t, err)
	_, err = a.AddBlock(ctx, "", model.BlockPersonalInfo, map[string]string{"fullName": "Alex Chen"})
	require.NoError(t, err)
	res, err := a.Commit(ctx, "Initial")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.Zero(t, asked, "committing only needs the public key")

	b := newTestApp(t, cfg, "Show")
	defer b.Close()
	b.SetPassphraseSource(passphrase)

	doc, err := b.Show(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alex Chen", doc.PersonalInfo.Get("fullName"))
	_, err = b.Show(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
}

func TestRgitApp_KeyWithoutEncryption(t *testing.T) {
	a := newTestApp(t, testConfig(t), "KeyInit")
	defer a.Close()

	assert.False(t, a.Encrypted())
	err := a.InitKey("secret")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not enabled"))
	assert.False(t, errors.Is(err, model.ErrNotFound))
}
