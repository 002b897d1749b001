package harness

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/predict"
)

//go:embed schema.cue
var schemaSource []byte

// Scenario is one accessibility conformance run.
type Scenario struct {
	// Name uniquely identifies this scenario. It names golden files, so it
	// is restricted to letters, digits, '_', '.' and '-'.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Command is the application to launch, e.g. "cmd.exe".
	Command string `yaml:"command"`

	// Settle configures how long each step waits for the host. Unset
	// fields take capture.DefaultQuiescence values.
	Settle Settle `yaml:"settle,omitempty"`

	// Steps run in order; the first failing step ends the run.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the captured trace and the final
	// console state after the steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Settle is the quiescence configuration as written in scenario files.
// Durations use time.ParseDuration syntax.
type Settle struct {
	Mode    string `yaml:"mode,omitempty"`
	Fixed   string `yaml:"fixed,omitempty"`
	Idle    string `yaml:"idle,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// Quiescence resolves s on top of capture.DefaultQuiescence.
func (s Settle) Quiescence() (capture.Quiescence, error) {
	q := capture.DefaultQuiescence

	mode, err := capture.ParseMode(s.Mode)
	if err != nil {
		return q, err
	}
	q.Mode = mode

	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"fixed", s.Fixed, &q.Fixed},
		{"idle", s.Idle, &q.Idle},
		{"timeout", s.Timeout, &q.Timeout},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return q, fmt.Errorf("%s: %w", f.name, err)
		}
		if d < 0 {
			return q, fmt.Errorf("%s: must not be negative", f.name)
		}
		*f.dst = d
	}
	return q, nil
}

// Enter step variants.
const (
	EnterLaunch = "launch"
	EnterExit   = "exit"
)

// Step is one input action. Exactly one of Text, Enter and Scroll is set.
type Step struct {
	// Name labels the step in results and traces. Defaults to a
	// description of the action.
	Name string `yaml:"name,omitempty"`

	// Text is typed one character at a time.
	Text string `yaml:"text,omitempty"`

	// Enter presses Enter: "launch" starts a nested shell, "exit" leaves it.
	Enter string `yaml:"enter,omitempty"`

	// Banner is what the nested shell prints on launch.
	Banner []string `yaml:"banner,omitempty"`

	// PromptColumn overrides the caret column after the prompt. Zero uses
	// the cursor column observed right after attaching.
	PromptColumn int `yaml:"prompt_column,omitempty"`

	Scroll *ScrollStep `yaml:"scroll,omitempty"`
}

// ScrollStep turns the mouse wheel.
type ScrollStep struct {
	Axis  string `yaml:"axis,omitempty"`
	Ticks int    `yaml:"ticks"`
}

func (s Step) validate() error {
	set := 0
	if s.Text != "" {
		set++
	}
	if s.Enter != "" {
		set++
	}
	if s.Scroll != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of text, enter, scroll is required (have %d)", set)
	}

	switch {
	case s.Enter != "":
		if s.Enter != EnterLaunch && s.Enter != EnterExit {
			return fmt.Errorf("enter must be %q or %q, got %q", EnterLaunch, EnterExit, s.Enter)
		}
		if s.Enter == EnterExit && len(s.Banner) > 0 {
			return errors.New("banner is only valid with enter: launch")
		}
	case s.Scroll != nil:
		if s.Scroll.Ticks == 0 {
			return errors.New("scroll.ticks must be non-zero")
		}
		if _, err := predict.ParseAxis(s.Scroll.Axis); err != nil {
			return err
		}
	}
	if len(s.Banner) > 0 && s.Enter == "" {
		return errors.New("banner is only valid with enter: launch")
	}
	if s.PromptColumn < 0 {
		return errors.New("prompt_column must not be negative")
	}
	return nil
}

// Action builds the predictor action for s. Text and banner lines are
// NFC-normalized here, so the typed characters and the predicted ones are
// the same code units.
func (s Step) Action(promptColumn int) (predict.Action, error) {
	if s.PromptColumn > 0 {
		promptColumn = s.PromptColumn
	}

	switch {
	case s.Text != "":
		return predict.TypeAction{Text: norm.NFC.String(s.Text)}, nil
	case s.Enter == EnterLaunch:
		banner := make([]string, len(s.Banner))
		for i, line := range s.Banner {
			banner[i] = norm.NFC.String(line)
		}
		return predict.LaunchAction{Launch: predict.Launch{Banner: banner, PromptColumn: promptColumn}}, nil
	case s.Enter == EnterExit:
		return predict.ExitAction{Exit: predict.Exit{PromptColumn: promptColumn}}, nil
	case s.Scroll != nil:
		axis, err := predict.ParseAxis(s.Scroll.Axis)
		if err != nil {
			return nil, err
		}
		return predict.ScrollAction{Axis: axis, Ticks: s.Scroll.Ticks}, nil
	}
	return nil, errors.New("step has no action")
}

// Label is the step's display name.
func (s Step) Label(a predict.Action) string {
	if s.Name != "" {
		return norm.NFC.String(s.Name)
	}
	return a.Describe()
}

// Assertion validates the captured trace or the final console state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Kind is the notification kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Params are matched against the leading params of a record
	// (trace_contains). Omitted params match anything.
	Params []int `yaml:"params,omitempty"`

	// Kinds is the expected order (trace_order). Other records may
	// appear in between.
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the exact number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Cursor is the expected final [x, y] (final_state).
	Cursor []int `yaml:"cursor,omitempty"`

	// Attributes is the expected final character attribute word
	// (final_state).
	Attributes *int `yaml:"attributes,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// SchemaError is a scenario file that does not match the scenario schema.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or does not match the schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario parses scenario YAML. filename is used in error positions.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	// before the schema reports a less obvious disjunction failure.
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := checkSchema(filename, data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// checkSchema unifies the YAML document with #Scenario. A fresh CUE context
// is used per call since contexts are not safe for concurrent use.
func checkSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return schemaError(filename, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return schemaError(filename, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return schemaError(filename, err)
	}
	return nil
}

// schemaError keeps the first CUE error, preferring a position inside the
// scenario file over one inside the schema.
func schemaError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	out := &SchemaError{Message: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		if !out.Pos.IsValid() {
			out.Pos = pos
		}
		if pos.Filename() == filename {
			out.Pos = pos
			break
		}
	}
	return out
}

// Validate checks required fields and step shapes. Run calls it, so
// scenarios built in Go get the same checks as loaded ones.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Command == "" {
		return errors.New("command is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if _, err := s.Settle.Quiescence(); err != nil {
		return fmt.Errorf("settle: %w", err)
	}

	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if _, err := notify.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if len(a.Params) > 4 {
			return fmt.Errorf("assertions[%d]: at most 4 params", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := notify.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertTraceCount:
		if _, err := notify.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Cursor != nil && len(a.Cursor) != 2 {
			return fmt.Errorf("assertions[%d]: cursor must be [x, y]", index)
		}
		if a.Cursor == nil && a.Attributes == nil {
			return fmt.Errorf("assertions[%d]: final_state needs cursor or attributes", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
