package rgit_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
	"rgit-go/internal/snapshot"
	rtest "rgit-go/internal/testutil"
)

func TestService_Commit_FirstOnNewBranch(t *testing.T) {
	ctx := context.Background()
	env := rtest.NewEnv(t)
	r := newResume(t, env)

	_, err := env.Service.CreateBranch(ctx, r.ID, "google-swe", "main", "")
	require.NoError(t, err)

	res := commit(t, env, r.ID, "google-swe", docSnapshot(t, personal(map[string]string{"fullName": "Alex Chen"})), "first edit")
	assert.Empty(t, res.Commit.ParentID)
	assert.Equal(t, int64(1), res.Commit.Depth)
	assert.Len(t, res.ShortHash, model.ShortHashLen)
	assert.Equal(t, author, res.Commit.AuthorID)

	b, err := env.Service.GetBranch(ctx, r.ID, "google-swe")
	require.NoError(t, err)
	assert.Equal(t, res.ID, b.TipCommitID)

	log, err := env.Service.Log(ctx, r.ID, "google-swe", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{res.ID}, ids(log))
}

func TestService_Commit_ChainsParents(t *testing.T) {
	env := rtest.NewEnv(t)
	r := newResume(t, env)

	first := commitName(t, env, r.ID, "main", "Alex")
	second := commitName(t, env, r.ID, "main", "Alex Chen")

	assert.Equal(t, first.ID, second.Commit.ParentID)
	assert.Equal(t, int64(2), second.Commit.Depth)
	assert.NotEqual(t, first.Commit.Hash, second.Commit.Hash)
}

func TestService_Commit_Validation(t *testing.T) {
	ctx := context.Background()
	env := rtest.NewEnv(t)
	r := newResume(t, env)

	_, err := env.Service.Commit(ctx, rgit.CommitRequest{ResumeID: r.ID, Branch: "main", Message: " \n\t "})
	assert.ErrorIs(t, err, model.ErrEmptyMessage)

	_, err = env.Service.Commit(ctx, rgit.CommitRequest{ResumeID: r.ID, Branch: "nope", Message: "x"})
	assert.ErrorIs(t, err, model.ErrBranchNotFound)

	_, err = env.Service.Commit(ctx, rgit.CommitRequest{ResumeID: "missing", Branch: "main", Message: "x"})
	assert.ErrorIs(t, err, model.ErrResumeNotFound)
}

func TestService_Commit_StaleExpectedTip(t *testing.T) {
	ctx := context.Background()
	env := rtest.NewEnv(t)
	r := newResume(t, env)
	commitName(t, env, r.ID, "main", "Alex")

	stale := ""
	_, err := env.Service.Commit(ctx, rgit.CommitRequest{
		ResumeID:    r.ID,
		Branch:      "main",
		Snapshot:    snapshot.Empty(),
		Message:     "based on nothing",
		ExpectedTip: &stale,
	})
	assert.ErrorIs(t, err, model.ErrConcurrentModification)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.CommitConflicts))
}

func TestService_Commit_ConcurrentOnSameTip(t *testing.T) {
	ctx := context.Background()
	env := rtest.NewEnv(t)
	r := newResume(t, env)
	base := commitName(t, env, r.ID, "main", "Alex")

	const writers = 8
	snaps := make([]*snapshot.Snapshot, writers)
	for i := range snaps {
		snaps[i] = docSnapshot(t, personal(map[string]string{"fullName": "Alex", "phone": fmt.Sprintf("555-010%d", i)}))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []string
		conflicts int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.Service.Commit(ctx, rgit.CommitRequest{
				ResumeID:    r.ID,
				Branch:      "main",
				Snapshot:    snaps[i],
				Message:     "concurrent edit",
				AuthorID:    author,
				ExpectedTip: &base.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded = append(succeeded, res.ID)
			case errors.Is(err, model.ErrConcurrentModification):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	assert.Equal(t, writers-1, conflicts)

	b, err := env.Service.GetBranch(ctx, r.ID, "main")
	require.NoError(t, err)
	assert.Equal(t, succeeded[0], b.TipCommitID)

	log, err := env.Service.Log(ctx, r.ID, "main", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{succeeded[0], base.ID}, ids(log))
}

func TestService_Commit_DeduplicatesSnapshots(t *testing.T) {
	env := rtest.NewEnv(t)
	r := newResume(t, env)

	snap := docSnapshot(t, personal(map[string]string{"fullName": "Alex Chen"}))
	a := commit(t, env, r.ID, "main", snap, "one")
	b := commit(t, env, r.ID, "main", snap, "same content again")

	assert.Equal(t, a.Commit.SnapshotHash, b.Commit.SnapshotHash)
	assert.NotEqual(t, a.Commit.Hash, b.Commit.Hash)
	assert.Equal(t, 1, env.Vault.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.SnapshotsStored))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.Metrics.SnapshotsDeduped))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.Metrics.CommitsTotal))
}

func TestService_Commit_Encrypted(t *testing.T) {
	ctx := context.Background()
	env := rtest.NewEnv(t, rtest.WithEncryption())
	require.NoError(t, env.Encryptor.Setup("correct horse"))
	r := newResume(t, env)

	res := commitName(t, env, r.ID, "main", "Alex Chen")

	raw, ok := env.Vault.Raw(res.Commit.SnapshotHash)
	require.True(t, ok)
	assert.False(t, json.Valid(raw), "vault blob should not be plaintext JSON")

	// A fresh service has no decoded snapshots cached.
	locked := rgit.NewService(env.DB, env.Vault, env.Encryptor, nil, rgit.NewNopLogger(), env.Clock, env.IDs)
	_, err := locked.ResolveSnapshot(ctx, r.ID, "main")
	assert.ErrorIs(t, err, model.ErrLocked)

	wrong := rgit.NewService(env.DB, env.Vault, env.Encryptor, nil, rgit.NewNopLogger(), env.Clock, env.IDs)
	wrong.SetPassphraseSource(func() (string, error) { return "battery staple", nil })
	_, err = wrong.ResolveSnapshot(ctx, r.ID, "main")
	assert.Error(t, err)

	unlocked := rgit.NewService(env.DB, env.Vault, env.Encryptor, nil, rgit.NewNopLogger(), env.Clock, env.IDs)
	unlocked.SetPassphraseSource(func() (string, error) { return "correct horse", nil })
	snap, err := unlocked.ResolveSnapshot(ctx, r.ID, "main")
	require.NoError(t, err)
	assert.Equal(t, res.Commit.SnapshotHash, snap.Hash())
	assert.Equal(t, "Alex Chen", snap.Document().PersonalInfo.Get("fullName"))

	// The decoded snapshot and the unlocked key are both reused.
	_, err = unlocked.ResolveSnapshot(ctx, r.ID, res.ShortHash)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Encryptor.Unlocks())
}

func TestService_GetCommit_NotFound(t *testing.T) {
	env := rtest.NewEnv(t)
	_, err := env.Service.GetCommit(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
