package snapshot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgit-go/internal/model"
	"rgit-go/internal/tree"
)

type seqIDs struct{ n int }

func (g *seqIDs) New() string {
	g.n++
	return fmt.Sprintf("b%02d", g.n)
}

func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New(&seqIDs{})
	_, err := tr.AddBlock("", model.BlockPersonalInfo, map[string]string{"fullName": "Alex Chen", "email": "alex@example.com"})
	require.NoError(t, err)
	exp, err := tr.AddBlock("", model.BlockContainer, map[string]string{"title": "Experience"})
	require.NoError(t, err)
	_, err = tr.AddBlock(exp.ID, model.BlockExperience, map[string]string{"company": "Acme", "title": "Engineer"})
	require.NoError(t, err)
	_, err = tr.AddBlock(exp.ID, model.BlockExperience, map[string]string{"company": "Globex"})
	require.NoError(t, err)
	_, err = tr.AddBlock("", model.BlockSkillGroup, map[string]string{"category": "Languages", "items": "Go, SQL"})
	require.NoError(t, err)
	return tr
}

func TestBuild(t *testing.T) {
	t.Run("structurally identical trees are equal", func(t *testing.T) {
		a := Build(sampleTree(t))
		b := Build(sampleTree(t))
		assert.True(t, a.Equal(b))
		assert.Equal(t, a.Hash(), b.Hash())
		assert.Len(t, a.Hash(), 32)
	})

	t.Run("snapshot is isolated from later edits", func(t *testing.T) {
		tr := sampleTree(t)
		s := Build(tr)
		before := s.Hash()

		require.NoError(t, tr.UpdateBlock("b01", map[string]string{"fullName": "Someone Else"}))
		blocks := s.Blocks()
		blocks[0].Content["fullName"] = "mutated"

		assert.Equal(t, before, s.Hash())
		assert.Equal(t, "Alex Chen", s.Blocks()[0].Content["fullName"])
		assert.False(t, s.Equal(Build(tr)))
	})

	t.Run("layout changes the hash", func(t *testing.T) {
		tr := sampleTree(t)
		a := Build(tr)
		require.NoError(t, tr.UpdateLayout("b02", model.Layout{Direction: model.DirectionHorizontal}))
		assert.NotEqual(t, a.Hash(), Build(tr).Hash())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0, Empty().Len())
		assert.True(t, Empty().Equal(Build(tree.New(&seqIDs{}))))
	})
}

func TestEncodeDecode(t *testing.T) {
	s := Build(sampleTree(t))

	got, err := Decode(s.Encode())
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
	assert.Equal(t, s.Blocks(), got.Blocks())

	_, err = Decode([]byte("{not json"))
	require.Error(t, err)

	_, err = Decode([]byte(`{"blocks":[{"id":"a","type":"container","parent_id":"missing"}]}`))
	require.ErrorIs(t, err, model.ErrInvalidParent)
}

func TestSnapshot_Tree(t *testing.T) {
	s := Build(sampleTree(t))
	tr := s.Tree(&seqIDs{n: 50})
	assert.False(t, tr.Dirty())
	assert.Equal(t, s.Blocks(), tr.Blocks())

	_, err := tr.AddBlock("", model.BlockProject, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
}

func TestDocument(t *testing.T) {
	d := Build(sampleTree(t)).Document()

	assert.Equal(t, "Alex Chen", d.PersonalInfo.Get("fullName"))
	assert.Equal(t, "", d.PersonalInfo.Get("phone"))
	require.Len(t, d.Experience, 2)
	assert.Equal(t, "Acme", d.Experience[0].Get("company"))
	assert.Equal(t, "Globex", d.Experience[1].Get("company"))
	require.Len(t, d.Skills, 1)
	assert.Empty(t, d.Education)
	assert.Empty(t, d.Projects)

	sec, ok := model.SectionFor(model.BlockExperience)
	require.True(t, ok)
	assert.Equal(t, d.Experience, d.Entries(sec))
}

func TestTreeFromDocument(t *testing.T) {
	raw := []byte(`{
		"personalInfo": {"fullName": "Alex Chen", "email": "alex@example.com"},
		"experience": [{"company": "Acme", "title": "Engineer"}],
		"education": [],
		"skills": [{"category": "Languages", "items": "Go"}],
		"projects": [{"name": "rgit", "link": "https://example.com"}]
	}`)

	d, err := ParseDocument(raw)
	require.NoError(t, err)

	tr, err := TreeFromDocument(d, &seqIDs{})
	require.NoError(t, err)
	// personal info + 3 containers + 3 entries
	assert.Equal(t, 7, tr.Len())

	got := Build(tr).Document()
	assert.Equal(t, d.PersonalInfo.Fields, got.PersonalInfo.Fields)
	require.Len(t, got.Experience, 1)
	assert.Equal(t, "Engineer", got.Experience[0].Get("title"))
	require.Len(t, got.Projects, 1)
	assert.Equal(t, "rgit", got.Projects[0].Get("name"))
	assert.Empty(t, got.Education)

	_, err = ParseDocument([]byte("[]"))
	require.Error(t, err)
}
