package diff

// Summary counts fields per status.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
	// Sections is the number of sections with at least one changed field.
	Sections int `json:"sections"`
}

// Changed returns the number of fields that are not unchanged.
func (s Summary) Changed() int {
	return s.Added + s.Removed + s.Modified
}

func Summarize(fields []Field) Summary {
	var s Summary
	touched := make(map[string]bool)
	for _, f := range fields {
		switch f.Status {
		case StatusAdded:
			s.Added++
		case StatusRemoved:
			s.Removed++
		case StatusModified:
			s.Modified++
		case StatusUnchanged:
			s.Unchanged++
			continue
		}
		touched[f.Section] = true
	}
	s.Sections = len(touched)
	return s
}

// BySection groups fields by section name, preserving order.
func BySection(fields []Field) (sections []string, groups map[string][]Field) {
	groups = make(map[string][]Field)
	for _, f := range fields {
		if _, ok := groups[f.Section]; !ok {
			sections = append(sections, f.Section)
		}
		groups[f.Section] = append(groups[f.Section], f)
	}
	return sections, groups
}
