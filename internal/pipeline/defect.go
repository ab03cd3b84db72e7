package pipeline

// Defect names one data problem the healer knows how to remediate.
type Defect string

const (
	// DefectMissingTranslation marks content with a Hebrew body but no
	// English body.
	DefectMissingTranslation Defect = "missing-translation"
	// DefectLowSEO marks content scoring below the configured threshold.
	DefectLowSEO Defect = "low-seo"
	// DefectStuckDraft marks drafts untouched for longer than the
	// configured age.
	DefectStuckDraft Defect = "stuck-draft"
)

// AllDefects returns the known defect names in scan order.
func AllDefects() []Defect {
	return []Defect{DefectMissingTranslation, DefectLowSEO, DefectStuckDraft}
}

// ParseDefect validates a defect name.
func ParseDefect(value string) (Defect, bool) {
	switch Defect(value) {
	case DefectMissingTranslation, DefectLowSEO, DefectStuckDraft:
		return Defect(value), true
	default:
		return "", false
	}
}
