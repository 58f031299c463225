package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blogdesk/internal/blog"
)

// Scenario is one store conformance test.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Backend seeds the fake API.
	Backend BackendSetup `yaml:"backend"`

	// PageSize overrides the store's page size. 0 keeps the default.
	PageSize int `yaml:"page_size,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// BackendSetup describes the fake API's starting collection.
type BackendSetup struct {
	// Posts is the number of generated posts, ids 1..Posts.
	Posts int `yaml:"posts"`

	// NextID is the id given to the first created post. Defaults to Posts+1.
	NextID int `yaml:"next_id,omitempty"`

	// Persist makes mutations change the served collection.
	Persist bool `yaml:"persist,omitempty"`
}

// Step is one operation.
type Step struct {
	Op string `yaml:"op"`

	Cursor   *int        `yaml:"cursor,omitempty"`
	Draft    *blog.Draft `yaml:"draft,omitempty"`
	Post     *blog.Post  `yaml:"post,omitempty"`
	ID       int         `yaml:"id,omitempty"`
	Method   string      `yaml:"method,omitempty"`
	Status   int         `yaml:"status,omitempty"`
	Email    string      `yaml:"email,omitempty"`
	Password string      `yaml:"password,omitempty"`

	// Expect describes an expected failure. Nil means the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect is an expected step failure.
type StepExpect struct {
	// Error is the failure class.
	Error string `yaml:"error"`

	// Message must be a substring of the error text when set.
	Message string `yaml:"message,omitempty"`
}

// Assertion checks the final state, the journal or the backend.
type Assertion struct {
	Type string `yaml:"type"`

	// Expect is a subset match (state, post, session).
	Expect map[string]any `yaml:"expect,omitempty"`

	// IDs is the exact list order (post_ids).
	IDs []int `yaml:"ids,omitempty"`

	// ID selects a post (post).
	ID int `yaml:"id,omitempty"`

	// Kind and Phase select journal rows (journal_count).
	Kind  string `yaml:"kind,omitempty"`
	Phase string `yaml:"phase,omitempty"`

	// Entries are "kind/phase" pairs (journal_order).
	Entries []string `yaml:"entries,omitempty"`

	// Method selects backend requests (requests).
	Method string `yaml:"method,omitempty"`

	// Count is the expected number of matches (journal_count, requests).
	Count int `yaml:"count"`
}

// Step ops.
const (
	OpFetchFirst = "fetch_first"
	OpFetchNext  = "fetch_next"
	OpFetchPage  = "fetch_page"
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpFail       = "fail"
	OpNextID     = "next_id"
	OpRegister   = "register"
	OpLogin      = "login"
	OpLogout     = "logout"
)

// Failure classes.
const (
	ErrClassValidation = "validation"
	ErrClassRejected   = "rejected"
	ErrClassInFlight   = "in_flight"
	ErrClassSuperseded = "superseded"
	ErrClassStopped    = "stopped"
)

// Assertion types.
const (
	AssertState        = "state"
	AssertPostIDs      = "post_ids"
	AssertPost         = "post"
	AssertJournalCount = "journal_count"
	AssertJournalOrder = "journal_order"
	AssertRequests     = "requests"
	AssertSession      = "session"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir in lexical
// order. A path naming a file is returned as-is.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Backend.Posts < 0 {
		return fmt.Errorf("backend.posts must be >= 0")
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must be >= 0")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, st *Step) error {
	switch st.Op {
	case OpFetchFirst, OpFetchNext, OpLogout:
	case OpFetchPage:
		if st.Cursor == nil {
			return fmt.Errorf("steps[%d]: fetch_page requires cursor", i)
		}
	case OpCreate:
		if st.Draft == nil {
			return fmt.Errorf("steps[%d]: create requires draft", i)
		}
	case OpUpdate:
		if st.Post == nil {
			return fmt.Errorf("steps[%d]: update requires post", i)
		}
	case OpDelete, OpNextID:
		if st.ID == 0 {
			return fmt.Errorf("steps[%d]: %s requires id", i, st.Op)
		}
	case OpFail:
		if st.Method == "" {
			return fmt.Errorf("steps[%d]: fail requires method", i)
		}
	case OpRegister, OpLogin:
		// Blank emails are allowed so scenarios can exercise the rejection.
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
	}

	if st.Expect != nil {
		switch st.Expect.Error {
		case ErrClassValidation, ErrClassRejected, ErrClassInFlight, ErrClassSuperseded, ErrClassStopped:
		default:
			return fmt.Errorf("steps[%d].expect: unknown error class %q", i, st.Expect.Error)
		}
	}
	return nil
}

func validateAssertion(i int, a *Assertion) error {
	switch a.Type {
	case AssertState, AssertSession:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: %s requires expect", i, a.Type)
		}
	case AssertPostIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: post_ids requires ids (use [] for empty)", i)
		}
	case AssertPost:
		if a.ID == 0 || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: post requires id and expect", i)
		}
	case AssertJournalCount:
		if a.Kind == "" || a.Phase == "" {
			return fmt.Errorf("assertions[%d]: journal_count requires kind and phase", i)
		}
	case AssertJournalOrder:
		if len(a.Entries) < 2 {
			return fmt.Errorf("assertions[%d]: journal_order requires at least 2 entries", i)
		}
	case AssertRequests:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: requests requires method", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
	}
	return nil
}
