package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"

	"rgit-go/internal/model"
	"rgit-go/internal/tree"
)

// Entry is one structured item of a section: the fields of one block.
type Entry struct {
	ID     string
	Fields map[string]string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Fields)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &e.Fields)
}

// Get returns the field value, "" when absent.
func (e Entry) Get(key string) string {
	return e.Fields[key]
}

// Document is the section-grouped view of a snapshot used for diffing and
// export. Container blocks only contribute structure.
type Document struct {
	PersonalInfo Entry   `json:"personalInfo"`
	Experience   []Entry `json:"experience"`
	Education    []Entry `json:"education"`
	Skills       []Entry `json:"skills"`
	Projects     []Entry `json:"projects"`
}

// Document projects the snapshot onto its sections. List entries keep their
// pre-order position; several personal-info blocks are merged with later
// values winning.
func (s *Snapshot) Document() Document {
	var d Document
	for i := range s.blocks {
		b := &s.blocks[i]
		switch b.Type {
		case model.BlockPersonalInfo:
			if d.PersonalInfo.ID == "" {
				d.PersonalInfo.ID = b.ID
			}
			if d.PersonalInfo.Fields == nil {
				d.PersonalInfo.Fields = map[string]string{}
			}
			maps.Copy(d.PersonalInfo.Fields, b.Content)
		case model.BlockExperience:
			d.Experience = append(d.Experience, entryOf(b))
		case model.BlockEducation:
			d.Education = append(d.Education, entryOf(b))
		case model.BlockSkillGroup:
			d.Skills = append(d.Skills, entryOf(b))
		case model.BlockProject:
			d.Projects = append(d.Projects, entryOf(b))
		}
	}
	return d
}

func entryOf(b *model.Block) Entry {
	return Entry{ID: b.ID, Fields: maps.Clone(b.Content)}
}

// Entries returns the entries collected for the given section. The scalar
// Personal Info section always has exactly one entry.
func (d Document) Entries(sec model.Section) []Entry {
	switch sec.Type {
	case model.BlockPersonalInfo:
		return []Entry{d.PersonalInfo}
	case model.BlockExperience:
		return d.Experience
	case model.BlockEducation:
		return d.Education
	case model.BlockSkillGroup:
		return d.Skills
	case model.BlockProject:
		return d.Projects
	}
	return nil
}

// ParseDocument decodes a JSON resume document.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("parsing resume document: %w", err)
	}
	return d, nil
}

// TreeFromDocument lays a document out as a fresh block tree.
func TreeFromDocument(d Document, idgen tree.IDGenerator) (*tree.Tree, error) {
	t := tree.New(idgen)
	if err := AppendDocument(t, d); err != nil {
		return nil, err
	}
	return t, nil
}

// AppendDocument adds the document's blocks to t as top-level blocks: a
// personal-info block followed by one container per non-empty list section
// holding its entries.
func AppendDocument(t *tree.Tree, d Document) error {
	if _, err := t.AddBlock("", model.BlockPersonalInfo, d.PersonalInfo.Fields); err != nil {
		return err
	}
	for _, sec := range model.Sections {
		if !sec.List {
			continue
		}
		entries := d.Entries(sec)
		if len(entries) == 0 {
			continue
		}
		c, err := t.AddBlock("", model.BlockContainer, map[string]string{"title": sec.Name})
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := t.AddBlock(c.ID, sec.Type, e.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}
