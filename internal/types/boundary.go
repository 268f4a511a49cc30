package types

// SectionKey identifies a logical section of a course description document.
type SectionKey string

// Section keys recognized by the locator and extractor.
const (
	SectionSkills       SectionKey = "skills"
	SectionBigIdeas     SectionKey = "big_ideas"
	SectionUnits        SectionKey = "units"
	SectionExamSections SectionKey = "exam_sections"
	SectionTaskVerbs    SectionKey = "task_verbs"
)

// AllSectionKeys lists every section key in extraction order.
var AllSectionKeys = []SectionKey{
	SectionSkills,
	SectionBigIdeas,
	SectionUnits,
	SectionExamSections,
	SectionTaskVerbs,
}

// SectionBoundary is a best-guess inclusive region for one section of a
// document, expressed as 1-based line numbers. Produced by the locator,
// consumed once by the extractor, never persisted.
type SectionBoundary struct {
	SectionKey SectionKey `json:"section_key"`
	StartLine  int        `json:"start_line"`
	EndLine    int        `json:"end_line"`
	Confidence float64    `json:"confidence,omitempty"`
}

// SectionMap is the locator's result: resolved boundaries keyed by section,
// plus the keys it could not resolve.
type SectionMap struct {
	Resolved   map[SectionKey]SectionBoundary
	Unresolved []SectionKey
}

// IsResolved reports whether a boundary was found for key.
func (m *SectionMap) IsResolved(key SectionKey) bool {
	_, ok := m.Resolved[key]
	return ok
}
