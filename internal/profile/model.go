// Package profile defines the candidate profile data model and the rules for
// merging extracted fragments into a canonical profile.
//
// Every field is optional. A nil pointer or nil slice means "absent", which is
// distinct from an explicit empty string.
package profile

// ContactInfo holds the primary and additional contact details.
type ContactInfo struct {
	Email            *string  `json:"email,omitempty"`
	Phone            *string  `json:"phone,omitempty"`
	AdditionalEmails []string `json:"additionalEmails,omitempty"`
	AdditionalPhones []string `json:"additionalPhones,omitempty"`
}

// JobEntry is one position in the job history. ID is assigned once and never changes.
type JobEntry struct {
	ID              string   `json:"id,omitempty"`
	Company         string   `json:"company"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	Accomplishments []string `json:"accomplishments"`
}

// EducationEntry is one education record. Dates is kept free-form.
type EducationEntry struct {
	ID     string  `json:"id,omitempty"`
	School string  `json:"school"`
	Degree string  `json:"degree"`
	Dates  string  `json:"dates"`
	GPA    *string `json:"gpa,omitempty"`
}

// Fragment is a partial ProfileData. It is the shape produced by one AI
// extraction call and also the shape of the canonical profile record.
type Fragment struct {
	ContactInfo     *ContactInfo     `json:"contactInfo,omitempty"`
	CareerObjective *string          `json:"careerObjective,omitempty"`
	Skills          []string         `json:"skills,omitempty"`
	JobHistory      []JobEntry       `json:"jobHistory,omitempty"`
	Education       []EducationEntry `json:"education,omitempty"`
}

// PresentEnd is the sentinel end date for a current position.
const PresentEnd = "Present"

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Empty returns the value a newly provisioned profile starts with.
func Empty() Fragment {
	return Fragment{
		ContactInfo:     &ContactInfo{Email: String(""), Phone: String("")},
		CareerObjective: String(""),
		Skills:          []string{},
		JobHistory:      []JobEntry{},
		Education:       []EducationEntry{},
	}
}

// IsEmpty reports whether the fragment carries no data at all.
func (f Fragment) IsEmpty() bool {
	return f.ContactInfo == nil && f.CareerObjective == nil &&
		len(f.Skills) == 0 && len(f.JobHistory) == 0 && len(f.Education) == 0
}
