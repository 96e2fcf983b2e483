package rgit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgit-go/internal/database"
	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
	"rgit-go/internal/testutil"
)

// staleDB misses one branch name on lookup, as a process that checked before
// another one inserted it would.
type staleDB struct {
	*database.SQLDatabase
	hidden string
}

func (d staleDB) GetBranch(ctx context.Context, resumeID, name string) (*model.Branch, error) {
	if name == d.hidden {
		return nil, nil
	}
	return d.SQLDatabase.GetBranch(ctx, resumeID, name)
}

func TestNormalizeBranchName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Google SWE", "google-swe"},
		{"  Google   SWE  ", "google-swe"},
		{"feature/Data_Eng", "feature/data_eng"},
		{"Senior (Remote)!", "senior-remote"},
		{"tab\tand\nnewline", "tab-and-newline"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, rgit.NormalizeBranchName(tt.in))
		})
	}
}

func TestService_CreateBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes the name", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)

		b, err := env.Service.CreateBranch(ctx, r.ID, "Google SWE", "main", "Tailored for Google")
		require.NoError(t, err)
		assert.Equal(t, "google-swe", b.Name)
		assert.False(t, b.IsMain)
		assert.False(t, b.HasCommits())

		main, err := env.Service.GetBranch(ctx, r.ID, "main")
		require.NoError(t, err)
		assert.Equal(t, main.ID, b.ParentBranchID)
	})

	t.Run("forks from the source tip", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		first := commitName(t, env, r.ID, "main", "Alex Chen")

		b, err := env.Service.CreateBranch(ctx, r.ID, "startup", "main", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, b.TipCommitID)
		assert.Equal(t, first.ID, b.ForkCommitID)
	})

	t.Run("duplicate name", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		_, err := env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
		require.NoError(t, err)

		_, err = env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
		assert.ErrorIs(t, err, model.ErrDuplicateName)
		_, err = env.Service.CreateBranch(ctx, r.ID, "Google SWE", "main", "")
		assert.ErrorIs(t, err, model.ErrDuplicateName)
		_, err = env.Service.CreateBranch(ctx, r.ID, "main", "google-swe", "")
		assert.ErrorIs(t, err, model.ErrDuplicateName)
	})

	t.Run("invalid name", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		_, err := env.Service.CreateBranch(ctx, r.ID, "?!", "main", "")
		assert.ErrorIs(t, err, model.ErrInvalidName)
	})

	t.Run("unknown source", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		_, err := env.Service.CreateBranch(ctx, r.ID, "x", "nope", "")
		assert.ErrorIs(t, err, model.ErrBranchNotFound)
	})

	t.Run("unknown resume", func(t *testing.T) {
		env := testutil.NewEnv(t)
		_, err := env.Service.CreateBranch(ctx, "missing", "x", "main", "")
		assert.ErrorIs(t, err, model.ErrResumeNotFound)
	})
}

func TestService_CreateBranchRace(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	r := newResume(t, env)

	_, err := env.Service.CreateBranch(ctx, r.ID, "Google SWE", "main", "")
	require.NoError(t, err)

	other := rgit.NewService(staleDB{env.DB, "google-swe"}, env.Vault, nil, nil, rgit.NewNopLogger(), env.Clock, env.IDs)
	_, err = other.CreateBranch(ctx, r.ID, "Google SWE", "main", "")
	assert.ErrorIs(t, err, model.ErrDuplicateName)

	branches, err := env.Service.ListBranches(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, branches, 2)
}

func TestService_DeleteBranch(t *testing.T) {
	ctx := context.Background()

	t.Run("main is protected", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		assert.ErrorIs(t, env.Service.DeleteBranch(ctx, r.ID, "main"), model.ErrCannotDeleteMain)

		commitName(t, env, r.ID, "main", "Alex Chen")
		_, err := env.Service.CreateBranch(ctx, r.ID, "other", "main", "")
		require.NoError(t, err)
		assert.ErrorIs(t, env.Service.DeleteBranch(ctx, r.ID, "main"), model.ErrCannotDeleteMain)
	})

	t.Run("unknown branch", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		assert.ErrorIs(t, env.Service.DeleteBranch(ctx, r.ID, "ghost"), model.ErrBranchNotFound)
	})

	t.Run("commits stay addressable", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		_, err := env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
		require.NoError(t, err)
		res := commitName(t, env, r.ID, "google-swe", "Alex Chen")

		require.NoError(t, env.Service.DeleteBranch(ctx, r.ID, "google-swe"))

		_, err = env.Service.GetBranch(ctx, r.ID, "google-swe")
		assert.ErrorIs(t, err, model.ErrBranchNotFound)

		c, err := env.Service.ResolveCommit(ctx, r.ID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, res.ID, c.ID)
		c, err = env.Service.ResolveCommit(ctx, r.ID, res.ShortHash)
		require.NoError(t, err)
		assert.Equal(t, res.ID, c.ID)
	})

	t.Run("checked out branch moves workspace to main", func(t *testing.T) {
		env := testutil.NewEnv(t)
		r := newResume(t, env)
		_, err := env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
		require.NoError(t, err)
		_, err = env.Service.SwitchBranch(ctx, r.ID, "google-swe", false)
		require.NoError(t, err)
		_, err = env.Service.ImportDocument(ctx, r.ID, personal(map[string]string{"fullName": "Alex"}))
		require.NoError(t, err)

		require.NoError(t, env.Service.DeleteBranch(ctx, r.ID, "google-swe"))

		ws, err := env.Service.OpenWorkspace(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "main", ws.BranchName)
		assert.True(t, ws.Tree.Dirty())
		assert.Equal(t, 1, ws.Tree.Len())
	})
}

func TestService_BranchesAreIsolated(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	r := newResume(t, env)
	commitName(t, env, r.ID, "main", "Alex Chen")
	_, err := env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
	require.NoError(t, err)

	commitName(t, env, r.ID, "google-swe", "Alex Chen (Google)")

	mainLog, err := env.Service.Log(ctx, r.ID, "main", 0)
	require.NoError(t, err)
	assert.Len(t, mainLog, 1)
	featureLog, err := env.Service.Log(ctx, r.ID, "google-swe", 0)
	require.NoError(t, err)
	assert.Len(t, featureLog, 2)
}
