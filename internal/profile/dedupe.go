package profile

import (
	"github.com/google/uuid"
)

type jobKey struct {
	company, title, start, end string
}

type educationKey struct {
	school, degree, dates string
}

func (e JobEntry) key() jobKey {
	return jobKey{company: e.Company, title: e.Title, start: e.StartDate, end: e.EndDate}
}

func (e EducationEntry) key() educationKey {
	return educationKey{school: e.School, degree: e.Degree, dates: e.Dates}
}

// dedupeJobs keeps every existing entry and appends incoming entries whose
// (company, title, startDate, endDate) has not been seen. Exact match only.
func dedupeJobs(a, b []JobEntry) []JobEntry {
	seen := make(map[jobKey]struct{}, len(a)+len(b))
	out := make([]JobEntry, 0, len(a)+len(b))
	for _, e := range a {
		seen[e.key()] = struct{}{}
		out = append(out, e.clone())
	}
	for _, e := range b {
		k := e.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e.clone())
	}
	return out
}

func dedupeEducation(a, b []EducationEntry) []EducationEntry {
	seen := make(map[educationKey]struct{}, len(a)+len(b))
	out := make([]EducationEntry, 0, len(a)+len(b))
	for _, e := range a {
		seen[e.key()] = struct{}{}
		out = append(out, e.clone())
	}
	for _, e := range b {
		k := e.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e.clone())
	}
	return out
}

// AssignIDs gives every entry without an ID a fresh UUID. Entries that already
// carry an ID keep it.
func AssignIDs(f *Fragment) {
	if f == nil {
		return
	}
	for i := range f.JobHistory {
		if f.JobHistory[i].ID == "" {
			f.JobHistory[i].ID = uuid.NewString()
		}
	}
	for i := range f.Education {
		if f.Education[i].ID == "" {
			f.Education[i].ID = uuid.NewString()
		}
	}
}
