package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/blogdesk/internal/blog"
)

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if msg := evaluateAssertion(result, a); msg != "" {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return errs
}

func evaluateAssertion(r *Result, a Assertion) string {
	switch a.Type {
	case AssertState:
		return matchFields(stateFields(r), a.Expect, substringFields)
	case AssertPostIDs:
		return assertPostIDs(r, a.IDs)
	case AssertPost:
		return assertPost(r, a.ID, a.Expect)
	case AssertJournalCount:
		return assertJournalCount(r, a.Kind, a.Phase, a.Count)
	case AssertJournalOrder:
		return assertJournalOrder(r, a.Entries)
	case AssertRequests:
		if got := r.Requests[strings.ToUpper(a.Method)]; got != a.Count {
			return fmt.Sprintf("expected %d %s requests, got %d", a.Count, strings.ToUpper(a.Method), got)
		}
		return ""
	case AssertSession:
		return matchFields(sessionFields(r), a.Expect, map[string]bool{"token_prefix": true})
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}

// substringFields match when the expected text is contained in the actual
// text; an empty expectation requires an empty value.
var substringFields = map[string]bool{"error": true, "mutation_error": true}

func stateFields(r *Result) map[string]any {
	st := r.State
	return map[string]any{
		"posts":          len(st.Posts),
		"current_page":   st.CurrentPage,
		"has_more":       st.HasMore,
		"error":          st.Error,
		"mutation_error": st.MutationError,
		"loading":        st.Loading(),
		"loading_more":   st.LoadingMore(),
		"mutations":      st.Mutations,
	}
}

func sessionFields(r *Result) map[string]any {
	s := r.Session
	email := ""
	if s.User != nil {
		email = s.User.Email
	}
	return map[string]any{
		"authenticated": s.IsAuthenticated,
		"email":         email,
		"token":         s.Token,
		"token_prefix":  s.Token,
		"users":         r.Users,
	}
}

func postFields(p blog.Post, index int) map[string]any {
	return map[string]any{
		"title":   p.Title,
		"body":    p.Body,
		"user_id": p.UserID,
		"index":   index,
	}
}

// matchFields compares expected against actual by string form. Keys in
// partial are prefix (token_prefix) or substring matches.
func matchFields(actual, expected map[string]any, partial map[string]bool) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("unknown field %q", k))
			continue
		}
		want := fmt.Sprint(expected[k])
		have := fmt.Sprint(got)

		if partial[k] && want != "" {
			match := strings.Contains(have, want)
			if strings.HasSuffix(k, "_prefix") {
				match = strings.HasPrefix(have, want)
			}
			if !match {
				mismatches = append(mismatches, fmt.Sprintf("%s: %q does not match %q", k, have, want))
			}
			continue
		}
		if want != have {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %s, got %s", k, want, have))
		}
	}
	return strings.Join(mismatches, "; ")
}

func assertPostIDs(r *Result, want []int) string {
	got := make([]int, len(r.State.Posts))
	for i, p := range r.State.Posts {
		got[i] = p.ID
	}
	if !slices.Equal(got, want) {
		return fmt.Sprintf("expected ids %v, got %v", want, got)
	}
	return ""
}

func assertPost(r *Result, id int, expect map[string]any) string {
	i := blog.IndexOf(r.State.Posts, id)
	if i < 0 {
		return fmt.Sprintf("post %d not in list", id)
	}
	return matchFields(postFields(r.State.Posts[i], i), expect, nil)
}

func assertJournalCount(r *Result, kind, phase string, want int) string {
	got := 0
	for _, ev := range r.Trace {
		if ev.Kind == kind && ev.Phase == phase {
			got++
		}
	}
	if got != want {
		return fmt.Sprintf("expected %d %s/%s rows, got %d", want, kind, phase, got)
	}
	return ""
}

func assertJournalOrder(r *Result, entries []string) string {
	next := 0
	for _, ev := range r.Trace {
		if next < len(entries) && ev.Kind+"/"+ev.Phase == entries[next] {
			next++
		}
	}
	if next < len(entries) {
		return fmt.Sprintf("entry %q not found in order (matched %d of %d)", entries[next], next, len(entries))
	}
	return ""
}
