package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted suites against a running passage API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	StoryOverride     string // If set, overrides the story for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite executes a complete test suite on a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	storyID := suite.Story
	if r.StoryOverride != "" {
		storyID = r.StoryOverride
	}

	snap, err := CreateSession(ctx, r.Client, r.BaseURL, storyID)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = snap.ID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		var stepResult TestResult
		stepResult, snap = r.runStep(ctx, storyID, snap, step)
		result.Results = append(result.Results, stepResult)
		result.Session = snap.ID

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if err := DeleteSession(ctx, r.Client, r.BaseURL, snap.ID); err != nil {
		r.Logger("    Warning: failed to delete session %s: %v", snap.ID, err)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep executes one intent and checks its expectations. It returns the snapshot the
// next step starts from: the new one on success, the unchanged one on rejection.
func (r *Runner) runStep(ctx context.Context, storyID string, current *engine.Snapshot, step TestStep) (TestResult, *engine.Snapshot) {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	var (
		next *engine.Snapshot
		err  error
	)
	switch step.Action {
	case ActionChoose:
		next, err = PostChoice(ctx, r.Client, r.BaseURL, current.ID, step.Index)
	case ActionAttack:
		next, err = PostAttack(ctx, r.Client, r.BaseURL, current.ID)
	case ActionReset:
		result.IsReset = true
		if err = DeleteSession(ctx, r.Client, r.BaseURL, current.ID); err == nil {
			next, err = CreateSession(ctx, r.Client, r.BaseURL, storyID)
		}
	default:
		err = fmt.Errorf("unknown action %q", step.Action)
	}

	if step.Expectations.ErrorCode != "" {
		next, err = r.checkRejected(ctx, current, step.Expectations.ErrorCode, err)
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, current
	}

	if err := checkExpectations(step.Expectations, next); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result, next
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, next
}

// checkRejected verifies that err is an API error with the wanted code and that the
// session still reads the same as before the intent.
func (r *Runner) checkRejected(ctx context.Context, before *engine.Snapshot, code string, err error) (*engine.Snapshot, error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil, fmt.Errorf("expected error code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		return nil, fmt.Errorf("expected error code %s, got %s", code, apiErr.Code)
	}

	after, err := GetSession(ctx, r.Client, r.BaseURL, before.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload session after rejection: %w", err)
	}
	if after.Turn != before.Turn || after.Passage.ID != before.Passage.ID || !after.Vars.Equal(before.Vars) {
		return nil, fmt.Errorf("rejected intent changed the session: turn %d -> %d, passage %s -> %s",
			before.Turn, after.Turn, before.Passage.ID, after.Passage.ID)
	}
	return after, nil
}

// checkExpectations validates the test expectations against the snapshot
func checkExpectations(exp Expectations, snap *engine.Snapshot) error {
	if exp.Passage != nil && snap.Passage.ID != *exp.Passage {
		return fmt.Errorf("expected passage %s, got %s", *exp.Passage, snap.Passage.ID)
	}

	if exp.Turn != nil && snap.Turn != *exp.Turn {
		return fmt.Errorf("expected turn to be %d, got %d", *exp.Turn, snap.Turn)
	}

	for key, expectedValue := range exp.Vars {
		actualValue, exists := snap.Vars[key]
		if !exists {
			return fmt.Errorf("expected variable %s to be set, but it doesn't exist", key)
		}
		if actualValue.String() != expectedValue {
			return fmt.Errorf("expected variable %s to be %s, got %s", key, expectedValue, actualValue)
		}
	}
	for _, key := range exp.Unset {
		if v, exists := snap.Vars[key]; exists {
			return fmt.Errorf("expected variable %s to be unset, got %s", key, v)
		}
	}

	if exp.Choices != nil {
		texts := make([]string, 0, len(snap.VisibleChoices))
		for _, c := range snap.VisibleChoices {
			texts = append(texts, c.Text)
		}
		if !slices.Equal(texts, exp.Choices) {
			return fmt.Errorf("expected choices %q, got %q", exp.Choices, texts)
		}
	}

	if exp.HistoryLen != nil && len(snap.History) != *exp.HistoryLen {
		return fmt.Errorf("expected history length %d, got %d: %v", *exp.HistoryLen, len(snap.History), snap.History)
	}

	if exp.HeroHP != nil {
		if hp := snap.Vars.Num(vars.HP); hp != *exp.HeroHP {
			return fmt.Errorf("expected hero hp %d, got %d", *exp.HeroHP, hp)
		}
	}

	if exp.InCombat != nil {
		inCombat := snap.Combat != nil && !snap.Combat.Finished
		if inCombat != *exp.InCombat {
			return fmt.Errorf("expected in_combat to be %t, got %t", *exp.InCombat, inCombat)
		}
	}

	if exp.EnemyHP != nil || exp.CombatResult != nil || len(exp.LogContains) > 0 {
		if snap.Combat == nil {
			return fmt.Errorf("expected combat details, but the snapshot has no combat")
		}
		if exp.EnemyHP != nil && snap.Combat.EnemyHP != *exp.EnemyHP {
			return fmt.Errorf("expected enemy hp %d, got %d", *exp.EnemyHP, snap.Combat.EnemyHP)
		}
		if exp.CombatResult != nil && snap.Combat.Result != *exp.CombatResult {
			return fmt.Errorf("expected combat result %q, got %q", *exp.CombatResult, snap.Combat.Result)
		}
		log := strings.Join(snap.Combat.Log, "\n")
		for _, want := range exp.LogContains {
			if !strings.Contains(log, want) {
				return fmt.Errorf("expected combat log to contain '%s', got:\n%s", want, log)
			}
		}
	}

	return nil
}
