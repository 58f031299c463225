package blogstore

import (
	"fmt"
	"slices"

	"github.com/roach88/blogdesk/internal/blog"
)

// applied is the result of applying one event to the state.
type applied struct {
	changed bool
	journal bool
	phase   Phase
	cursor  int
	detail  map[string]any
	err     error
}

// apply routes an event to its reducer. Called only from Run.
func (s *Store) apply(ev event) applied {
	switch ev.kind {
	case KindFetchFirst, KindFetchNext:
		if ev.phase == PhasePending {
			return s.beginFetch(ev)
		}
		return s.settleFetch(ev)

	case KindCreate, KindUpdate, KindDelete:
		if ev.phase == PhasePending {
			return s.beginMutation(ev)
		}
		return s.settleMutation(ev)

	default:
		s.logger.Error("unknown event kind", "kind", ev.kind, "request", ev.requestID)
		return applied{err: fmt.Errorf("unknown event kind %q", ev.kind)}
	}
}

func (s *Store) beginFetch(ev event) applied {
	slot := s.state.Request
	cursor := ev.cursor

	switch ev.kind {
	case KindFetchFirst:
		cursor = 0
		if !slot.Idle() {
			s.logger.Info("fetch superseded",
				"superseded", slot.ID,
				"superseded_kind", slot.Kind,
				"by", ev.requestID,
			)
		}
	case KindFetchNext:
		if !slot.Idle() {
			s.logger.Warn("next page refused: fetch in flight",
				"request", ev.requestID,
				"in_flight", slot.ID,
				"in_flight_kind", slot.Kind,
			)
			return applied{phase: PhasePending, err: ErrRequestInFlight}
		}
		if cursor < 0 {
			cursor = s.state.CurrentPage
		}
	}

	s.state.Request = Request{Kind: ev.kind, ID: ev.requestID, Cursor: cursor, Phase: PhasePending}
	return applied{
		changed: true,
		journal: true,
		phase:   PhasePending,
		cursor:  cursor,
		detail:  map[string]any{"cursor": cursor},
	}
}

func (s *Store) settleFetch(ev event) applied {
	if s.state.Request.ID != ev.requestID {
		s.logger.Info("dropping superseded fetch result",
			"kind", ev.kind,
			"request", ev.requestID,
			"slot", s.state.Request.ID,
		)
		return applied{
			journal: true,
			phase:   PhaseSuperseded,
			cursor:  ev.cursor,
			detail:  map[string]any{"cursor": ev.cursor},
			err:     ErrSuperseded,
		}
	}

	s.state.Request = Request{}

	if ev.err != nil {
		s.state.Error = ev.err.Error()
		return applied{
			changed: true,
			journal: true,
			phase:   PhaseRejected,
			cursor:  ev.cursor,
			detail:  map[string]any{"cursor": ev.cursor},
		}
	}

	page := ev.page
	switch ev.kind {
	case KindFetchFirst:
		s.state.Posts = slices.Clone(page.Items)
		s.state.HasMore = page.HasMore
		s.state.CurrentPage = page.Next()

	case KindFetchNext:
		posts := make([]blog.Post, 0, len(s.state.Posts)+len(page.Items))
		posts = append(posts, s.state.Posts...)
		s.state.Posts = append(posts, page.Items...)

		if s.state.CurrentPage == 0 {
			s.state.HasMore = page.HasMore
		} else {
			s.state.HasMore = s.state.HasMore && page.HasMore
		}
		s.state.CurrentPage = max(s.state.CurrentPage, page.Next())
	}
	s.state.Error = ""

	return applied{
		changed: true,
		journal: true,
		phase:   PhaseFulfilled,
		cursor:  page.Cursor,
		detail: map[string]any{
			"cursor":   page.Cursor,
			"count":    len(page.Items),
			"total":    page.Total,
			"has_more": s.state.HasMore,
		},
	}
}

func (s *Store) beginMutation(ev event) applied {
	s.state.Mutations++

	res := applied{changed: true, journal: true, phase: PhasePending}
	if ev.kind != KindCreate {
		res.detail = map[string]any{"id": ev.id}
	}
	return res
}

func (s *Store) settleMutation(ev event) applied {
	if s.state.Mutations > 0 {
		s.state.Mutations--
	}

	if ev.err != nil {
		s.state.MutationError = ev.err.Error()
		res := applied{changed: true, journal: true, phase: PhaseRejected}
		if ev.kind != KindCreate {
			res.detail = map[string]any{"id": ev.id}
		}
		return res
	}

	s.state.MutationError = ""
	detail := map[string]any{}

	switch ev.kind {
	case KindCreate:
		posts := make([]blog.Post, 0, len(s.state.Posts)+1)
		posts = append(posts, ev.post)
		s.state.Posts = append(posts, s.state.Posts...)
		detail["id"] = ev.post.ID

	case KindUpdate:
		detail["id"] = ev.post.ID
		i := blog.IndexOf(s.state.Posts, ev.post.ID)
		if i < 0 {
			s.logger.Debug("updated post not in list", "id", ev.post.ID)
			detail["replaced"] = false
			break
		}
		posts := slices.Clone(s.state.Posts)
		posts[i] = ev.post
		s.state.Posts = posts
		detail["replaced"] = true

	case KindDelete:
		before := len(s.state.Posts)
		s.state.Posts = slices.DeleteFunc(slices.Clone(s.state.Posts), func(p blog.Post) bool {
			return p.ID == ev.id
		})
		detail["id"] = ev.id
		detail["removed"] = before - len(s.state.Posts)
	}

	return applied{changed: true, journal: true, phase: PhaseFulfilled, detail: detail}
}
