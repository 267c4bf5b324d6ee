// Package resolve turns user-typed text into canonical names, identifiers,
// and mutation payloads using only Snapshot data. Every function here is
// total: no I/O, no failures, and record lookup always yields at least one
// candidate.
package resolve

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/h0rv/ghcord/internal/domain"
)

// MaxSuggestions is the display cap for autocomplete result sets.
const MaxSuggestions = 25

// Repos returns repository names matching the partial string,
// case-insensitively, capped at MaxSuggestions.
func Repos(s *domain.Snapshot, partial string) []string {
	partial = strings.ToLower(partial)
	var out []string
	for _, r := range s.Repos {
		if strings.Contains(strings.ToLower(r.Name), partial) {
			out = append(out, r.Name)
			if len(out) >= MaxSuggestions {
				break
			}
		}
	}
	return out
}

// Projects returns project titles matching the partial string.
func Projects(s *domain.Snapshot, partial string) []string {
	partial = strings.ToLower(partial)
	var out []string
	for _, p := range s.Projects {
		if strings.Contains(strings.ToLower(p.Title), partial) {
			out = append(out, p.Title)
			if len(out) >= MaxSuggestions {
				break
			}
		}
	}
	return out
}

// People returns logins matching the partial string.
func People(s *domain.Snapshot, partial string) []string {
	partial = strings.ToLower(partial)
	var out []string
	for _, u := range s.People {
		if strings.Contains(strings.ToLower(u.Login), partial) {
			out = append(out, u.Login)
			if len(out) >= MaxSuggestions {
				break
			}
		}
	}
	return out
}

// Records suggests items across all projects' cached records. A record
// matches on its "{repo} #{number}" label, its title, or the bare number
// string. Records in a terminal state are excluded. When nothing matches,
// the raw partial is echoed back so downstream steps always have a
// candidate to act on.
func Records(s *domain.Snapshot, partial string, limit int) []string {
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}
	partialLower := strings.ToLower(partial)

	var suggestions []string
scan:
	for i := range s.Projects {
		proj := &s.Projects[i]
		for _, rec := range proj.Records {
			label := rec.Repo + " #" + strconv.Itoa(rec.Number)
			if !strings.Contains(strings.ToLower(label), partialLower) &&
				!strings.Contains(strings.ToLower(rec.Title), partialLower) &&
				!strings.Contains(strconv.Itoa(rec.Number), partialLower) {
				continue
			}
			if rec.Closed() {
				continue
			}

			suggestions = append(suggestions,
				label+": "+truncate(rec.Title, 30)+" ("+truncate(proj.Title, 15)+")")
			if len(suggestions) >= limit {
				break scan
			}
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, partial)
	}
	return suggestions
}

// Fields returns field names matching the partial string. When the project
// is known the lookup is scoped to it; otherwise the deduplicated union of
// field names across all projects is searched.
func Fields(s *domain.Snapshot, projectID, partial string) []string {
	partial = strings.ToLower(partial)
	seen := make(map[string]bool)
	var out []string

	add := func(name string) {
		if seen[name] || !strings.Contains(strings.ToLower(name), partial) {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	if projectID != "" {
		if proj, ok := s.ProjectByID(projectID); ok {
			for _, f := range proj.Fields {
				add(f.Name)
			}
			return capped(out)
		}
	}
	for i := range s.Projects {
		for _, f := range s.Projects[i].Fields {
			add(f.Name)
		}
	}
	return capped(out)
}

// ValueOptions suggests values for a field identified by name: enumerated
// option names for selection-like fields, date helper tokens for DATE
// fields, and nothing extra otherwise. The raw partial is appended when it
// is new so free-form input is always submittable.
func ValueOptions(s *domain.Snapshot, fieldName, partial string) []string {
	// Long free text is never an option name; echo it straight back.
	if len([]rune(partial)) > 50 {
		return []string{partial}
	}

	seen := make(map[string]bool)
	var options []string
	for i := range s.Projects {
		f, ok := s.Projects[i].FieldByName(fieldName)
		if !ok {
			continue
		}
		switch {
		case f.Selection():
			for name := range f.Options {
				if !seen[name] {
					seen[name] = true
					options = append(options, name)
				}
			}
		case f.DataType == domain.FieldTypeDate:
			for _, hint := range []string{"Today", "YYYY-MM-DD"} {
				if !seen[hint] {
					seen[hint] = true
					options = append(options, hint)
				}
			}
		}
	}

	partialLower := strings.ToLower(partial)
	var suggestions []string
	for _, o := range options {
		if strings.Contains(strings.ToLower(o), partialLower) {
			suggestions = append(suggestions, o)
			if len(suggestions) >= MaxSuggestions {
				break
			}
		}
	}

	if partial != "" && !containsFold(suggestions, partial) {
		suggestions = append(suggestions, partial)
	}
	return suggestions
}

// RecordNumber extracts the item number from a query like "backend #123",
// "#123", or "123". Returns 0 when no number can be found.
func RecordNumber(q string) int {
	if idx := strings.Index(q, "#"); idx >= 0 {
		q = q[idx+1:]
	}
	end := 0
	for end < len(q) && unicode.IsDigit(rune(q[end])) {
		end++
	}
	n, _ := strconv.Atoi(q[:end])
	return n
}

// BuildFieldValue maps typed input onto the mutation payload a field
// requires. A case-insensitive option-name match wins for selection-like
// fields; otherwise the field's data type decides: NUMBER parses a float
// (invalid input coerces to 0), DATE resolves a "Today" placeholder to the
// given clock in YYYY-MM-DD form and passes anything else through, and
// everything else is free text.
func BuildFieldValue(f domain.Field, typed string, now time.Time) domain.FieldValue {
	for name, id := range f.Options {
		if strings.EqualFold(name, typed) {
			return domain.OptionValue(id)
		}
	}

	switch f.DataType {
	case domain.FieldTypeNumber:
		n, _ := strconv.ParseFloat(typed, 64)
		return domain.NumberValue(n)
	case domain.FieldTypeDate:
		if strings.EqualFold(typed, "Today") {
			return domain.DateValue(now.Format("2006-01-02"))
		}
		return domain.DateValue(typed)
	default:
		return domain.TextValue(typed)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func capped(out []string) []string {
	if len(out) > MaxSuggestions {
		return out[:MaxSuggestions]
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
