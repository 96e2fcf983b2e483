package rgit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
	"rgit-go/internal/snapshot"
	"rgit-go/internal/testutil"
)

const author = "user-alex"

func newResume(t *testing.T, env *testutil.Env) *model.Resume {
	t.Helper()
	r, err := env.Service.CreateResume(context.Background(), author, "Alex Chen - Backend")
	require.NoError(t, err)
	return r
}

// docSnapshot lays a document out as a snapshot with its own ids.
func docSnapshot(t *testing.T, d snapshot.Document) *snapshot.Snapshot {
	t.Helper()
	tr, err := snapshot.TreeFromDocument(d, testutil.NewStubIDGenerator())
	require.NoError(t, err)
	return snapshot.Build(tr)
}

func personal(fields map[string]string) snapshot.Document {
	return snapshot.Document{PersonalInfo: snapshot.Entry{Fields: fields}}
}

func commit(t *testing.T, env *testutil.Env, resumeID, branch string, snap *snapshot.Snapshot, msg string) *rgit.CommitResult {
	t.Helper()
	res, err := env.Service.Commit(context.Background(), rgit.CommitRequest{
		ResumeID: resumeID,
		Branch:   branch,
		Snapshot: snap,
		Message:  msg,
		AuthorID: author,
	})
	require.NoError(t, err)
	return res
}

func commitName(t *testing.T, env *testutil.Env, resumeID, branch, name string) *rgit.CommitResult {
	t.Helper()
	return commit(t, env, resumeID, branch, docSnapshot(t, personal(map[string]string{"fullName": name})), "set name "+name)
}

func ids(commits []*model.Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.ID
	}
	return out
}
