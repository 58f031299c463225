package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roach88/blogdesk/internal/api"
	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/blogstore"
	"github.com/roach88/blogdesk/internal/paging"
	"github.com/roach88/blogdesk/internal/session"
	"github.com/roach88/blogdesk/internal/store"
	"github.com/roach88/blogdesk/internal/testutil"
)

// BackendPlaceholder replaces the fake backend's URL in recorded errors.
const BackendPlaceholder = "http://backend"

var trackedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Harness holds the collaborators for one scenario run.
type Harness struct {
	backend  *testutil.Backend
	journal  *store.Store
	store    *blogstore.Store
	sessions *session.Manager
	logger   *slog.Logger
}

// Run executes a scenario in isolation: a fresh fake backend, a fresh
// in-memory journal and a fresh session.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	backend := testutil.NewBackendServer(testutil.Posts(scenario.Backend.Posts))
	defer backend.Close()
	if scenario.Backend.NextID != 0 {
		backend.SetNextID(scenario.Backend.NextID)
	}
	backend.Persist(scenario.Backend.Persist)

	journal, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer journal.Close()

	client, err := api.New(backend.URL(), api.WithHTTPClient(backend.Server.Client()))
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ids := testutil.NewSequence("req")

	bs := blogstore.New(
		paging.NewCollectionSource(client),
		client,
		blogstore.WithJournal(journal),
		blogstore.WithIDGenerator(ids),
		blogstore.WithLogger(logger),
		blogstore.WithPageSize(scenario.PageSize),
	)

	tokens := testutil.NewSequence("token")
	sessions := session.NewManager(session.NewMemoryStorage(),
		session.WithLogger(logger),
		session.WithIDGenerator(tokens.Generate),
	)
	if err := sessions.Init(ctx); err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}

	h := &Harness{
		backend:  backend,
		journal:  journal,
		store:    bs,
		sessions: sessions,
		logger:   logger,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-bs.Done()
	}()
	go bs.Run(runCtx)

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		err := h.executeStep(ctx, step)

		sr := StepResult{Index: i, Op: step.Op}
		if err != nil {
			sr.Class = Classify(err)
			sr.Error = h.sanitize(err.Error())
		}
		result.Steps = append(result.Steps, sr)

		if msg := checkStep(sr, step.Expect); msg != "" {
			result.AddError(msg)
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch step.Op {
	case OpFetchFirst:
		_, err := h.store.FetchFirstPage(ctx)
		return err
	case OpFetchNext:
		_, err := h.store.FetchNextPage(ctx)
		return err
	case OpFetchPage:
		_, err := h.store.FetchPage(ctx, *step.Cursor)
		return err
	case OpCreate:
		_, err := h.store.CreatePost(ctx, *step.Draft)
		return err
	case OpUpdate:
		_, err := h.store.UpdatePost(ctx, *step.Post)
		return err
	case OpDelete:
		return h.store.DeletePost(ctx, step.ID)
	case OpFail:
		h.backend.Fail(strings.ToUpper(step.Method), step.Status)
		return nil
	case OpNextID:
		h.backend.SetNextID(step.ID)
		return nil
	case OpRegister:
		return h.sessions.RegisterUser(ctx, step.Email, step.Password)
	case OpLogin:
		_, err := h.sessions.Login(ctx, step.Email)
		return err
	case OpLogout:
		return h.sessions.Logout(ctx)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func checkStep(sr StepResult, expect *StepExpect) string {
	prefix := fmt.Sprintf("steps[%d] %s", sr.Index, sr.Op)

	if expect == nil {
		if sr.Class != "" {
			return fmt.Sprintf("%s: unexpected %s error: %s", prefix, sr.Class, sr.Error)
		}
		return ""
	}

	if sr.Class == "" {
		return fmt.Sprintf("%s: expected %s error, got success", prefix, expect.Error)
	}
	if sr.Class != expect.Error {
		return fmt.Sprintf("%s: expected %s error, got %s: %s", prefix, expect.Error, sr.Class, sr.Error)
	}
	if expect.Message != "" && !strings.Contains(sr.Error, expect.Message) {
		return fmt.Sprintf("%s: error %q does not contain %q", prefix, sr.Error, expect.Message)
	}
	return ""
}

// Classify maps a step error to its failure class.
func Classify(err error) string {
	var verr blog.ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr), errors.Is(err, session.ErrEmailRequired):
		return ErrClassValidation
	case errors.Is(err, blogstore.ErrRequestInFlight):
		return ErrClassInFlight
	case errors.Is(err, blogstore.ErrSuperseded):
		return ErrClassSuperseded
	case errors.Is(err, blogstore.ErrStopped):
		return ErrClassStopped
	default:
		return ErrClassRejected
	}
}

// collect fills the trace and final state into result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	ops, err := h.journal.ListOperations(ctx, 0)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	for _, op := range ops {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:       op.Seq,
			RequestID: op.RequestID,
			Kind:      op.Kind,
			Phase:     op.Phase,
			Detail:    op.Detail,
			Error:     h.sanitize(op.Error),
		})
	}

	result.State = h.store.Snapshot()
	result.State.Error = h.sanitize(result.State.Error)
	result.State.MutationError = h.sanitize(result.State.MutationError)
	result.Session = h.sessions.Current()

	users, err := h.sessions.Users(ctx)
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	result.Users = len(users)

	for _, m := range trackedMethods {
		result.Requests[m] = h.backend.Requests(m)
	}
	return nil
}

func (h *Harness) sanitize(s string) string {
	return strings.ReplaceAll(s, h.backend.URL(), BackendPlaceholder)
}
