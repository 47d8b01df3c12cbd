package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions
const (
	ActionChoose = "choose"
	ActionAttack = "attack"
	ActionReset  = "reset" // Ends the session and starts a new one on the same story
)

// TestSuite defines a scripted playthrough.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Story string     `json:"story,omitempty"` // Empty uses the server's default story
	Rolls []int      `json:"rolls,omitempty"` // Die results the server must replay; only honored in-process
	Steps []TestStep `json:"steps,omitempty"`
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one intent and the snapshot expected after it.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Index        int          `json:"index,omitempty"` // Visible choice index for ActionChoose
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Passage      *string           `json:"passage,omitempty"`
	Turn         *int              `json:"turn,omitempty"`
	Vars         map[string]string `json:"vars,omitempty"`  // Compared as strings: "20", "true", "crow"
	Unset        []string          `json:"unset,omitempty"` // Variables that must be absent
	Choices      []string          `json:"choices,omitempty"`
	HistoryLen   *int              `json:"history_len,omitempty"`
	HeroHP       *int              `json:"hero_hp,omitempty"`
	EnemyHP      *int              `json:"enemy_hp,omitempty"`
	InCombat     *bool             `json:"in_combat,omitempty"`
	CombatResult *string           `json:"combat_result,omitempty"`
	LogContains  []string          `json:"log_contains,omitempty"`

	// The step must be rejected with this API error code, leaving the session as it was
	ErrorCode string `json:"error_code,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool // True if this was a reset step
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // Last session used by this run
}
