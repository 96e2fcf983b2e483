package model

// Field declares one known content field of a block type.
type Field struct {
	Key   string
	Label string
}

// Section is a diff/report grouping of blocks of one type.
type Section struct {
	Name      string    // e.g. "Experience"
	EntryName string    // label prefix for list entries, e.g. "Experience"
	Type      BlockType // block type collected into this section
	List      bool      // false for scalar sections (Personal Info)
	Fields    []Field   // declaration order
}

// Sections lists the resume sections in their fixed reporting order.
var Sections = []Section{
	{
		Name: "Personal Info",
		Type: BlockPersonalInfo,
		Fields: []Field{
			{"fullName", "Full Name"},
			{"email", "Email"},
			{"phone", "Phone"},
			{"location", "Location"},
			{"website", "Website"},
			{"summary", "Summary"},
		},
	},
	{
		Name:      "Experience",
		EntryName: "Experience",
		Type:      BlockExperience,
		List:      true,
		Fields: []Field{
			{"company", "Company"},
			{"title", "Title"},
			{"location", "Location"},
			{"startDate", "Start Date"},
			{"endDate", "End Date"},
			{"description", "Description"},
		},
	},
	{
		Name:      "Education",
		EntryName: "Education",
		Type:      BlockEducation,
		List:      true,
		Fields: []Field{
			{"school", "School"},
			{"degree", "Degree"},
			{"field", "Field"},
			{"startDate", "Start Date"},
			{"endDate", "End Date"},
			{"gpa", "GPA"},
		},
	},
	{
		Name:      "Skills",
		EntryName: "Skills",
		Type:      BlockSkillGroup,
		List:      true,
		Fields: []Field{
			{"category", "Category"},
			{"items", "Items"},
		},
	},
	{
		Name:      "Projects",
		EntryName: "Project",
		Type:      BlockProject,
		List:      true,
		Fields: []Field{
			{"name", "Name"},
			{"description", "Description"},
			{"technologies", "Technologies"},
			{"link", "Link"},
		},
	},
}

// SectionFor returns the section collecting blocks of type t.
func SectionFor(t BlockType) (Section, bool) {
	for _, s := range Sections {
		if s.Type == t {
			return s, true
		}
	}
	return Section{}, false
}
