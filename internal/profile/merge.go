package profile

// EntryStrategy selects how job history and education lists are combined.
type EntryStrategy int

const (
	// StrategyConcat appends incoming entries after existing ones. Reprocessing
	// the same source therefore duplicates its entries.
	StrategyConcat EntryStrategy = iota
	// StrategyDedupe drops incoming entries whose identity key matches an
	// entry already present. Opt-in only.
	StrategyDedupe
)

// Options tune MergeWith.
type Options struct {
	Entries EntryStrategy
}

// Merge combines an existing fragment with an incoming one using the default
// rules: scalars prefer incoming, collections of strings are unioned, entry
// lists are concatenated. Inputs are not modified.
func Merge(existing, incoming Fragment) Fragment {
	return MergeWith(existing, incoming, Options{})
}

// MergeWith is Merge with an explicit entry strategy.
func MergeWith(existing, incoming Fragment, opts Options) Fragment {
	var out Fragment

	if existing.ContactInfo != nil || incoming.ContactInfo != nil {
		out.ContactInfo = mergeContact(existing.ContactInfo, incoming.ContactInfo)
	}

	if nonBlank(existing.CareerObjective) || nonBlank(incoming.CareerObjective) {
		out.CareerObjective = copyString(firstPresent(incoming.CareerObjective, existing.CareerObjective))
	}

	if len(existing.Skills)+len(incoming.Skills) > 0 {
		out.Skills = union(existing.Skills, incoming.Skills)
	}

	if len(existing.JobHistory)+len(incoming.JobHistory) > 0 {
		switch opts.Entries {
		case StrategyDedupe:
			out.JobHistory = dedupeJobs(existing.JobHistory, incoming.JobHistory)
		default:
			out.JobHistory = concatJobs(existing.JobHistory, incoming.JobHistory)
		}
	}

	if len(existing.Education)+len(incoming.Education) > 0 {
		switch opts.Entries {
		case StrategyDedupe:
			out.Education = dedupeEducation(existing.Education, incoming.Education)
		default:
			out.Education = concatEducation(existing.Education, incoming.Education)
		}
	}

	return out
}

func mergeContact(a, b *ContactInfo) *ContactInfo {
	var ea, eb, pa, pb *string
	var xa, xb, ya, yb []string
	if a != nil {
		ea, pa, xa, ya = a.Email, a.Phone, a.AdditionalEmails, a.AdditionalPhones
	}
	if b != nil {
		eb, pb, xb, yb = b.Email, b.Phone, b.AdditionalEmails, b.AdditionalPhones
	}

	ci := &ContactInfo{
		Email: String(valueOr(firstPresent(eb, ea), "")),
		Phone: String(valueOr(firstPresent(pb, pa), "")),
	}
	if emails := without(union(xa, xb), *ci.Email); len(emails) > 0 {
		ci.AdditionalEmails = emails
	}
	if phones := without(union(ya, yb), *ci.Phone); len(phones) > 0 {
		ci.AdditionalPhones = phones
	}
	return ci
}

// without drops values exactly equal to primary. An empty primary drops nothing.
func without(values []string, primary string) []string {
	if primary == "" {
		return values
	}
	out := values[:0]
	for _, v := range values {
		if v != primary {
			out = append(out, v)
		}
	}
	return out
}

// union returns the distinct values of a then b in first-seen order.
// Comparison is exact string equality.
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func concatJobs(a, b []JobEntry) []JobEntry {
	out := make([]JobEntry, 0, len(a)+len(b))
	for _, e := range a {
		out = append(out, e.clone())
	}
	for _, e := range b {
		out = append(out, e.clone())
	}
	return out
}

func concatEducation(a, b []EducationEntry) []EducationEntry {
	out := make([]EducationEntry, 0, len(a)+len(b))
	for _, e := range a {
		out = append(out, e.clone())
	}
	for _, e := range b {
		out = append(out, e.clone())
	}
	return out
}

func firstPresent(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func nonBlank(s *string) bool {
	return s != nil && *s != ""
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	return String(*s)
}

func (e JobEntry) clone() JobEntry {
	if e.Accomplishments != nil {
		e.Accomplishments = append([]string(nil), e.Accomplishments...)
	}
	return e
}

func (e EducationEntry) clone() EducationEntry {
	e.GPA = copyString(e.GPA)
	return e
}
