package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/harness"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/predict"
	"github.com/roach88/a11yoracle/internal/trace"
)

// PredictOptions holds flags for the predict command.
type PredictOptions struct {
	*RootOptions
	Cursor       []int
	Size         []int
	Attributes   int
	PromptColumn int
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PredictOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "predict <scenario.yaml>",
		Short: "Print the expected notifications for a scenario",
		Long: `Predict the notification stream for every step of a scenario,
starting from a given console state, without launching anything.

With --format json the output is the canonical trace document, suitable
for golden files.

Examples:
  a11yoracle predict scenarios/launch_and_exit.yaml
  a11yoracle predict scenarios/typing.yaml --cursor 0,0 --size 80,300
  a11yoracle predict scenarios/typing.yaml --format json > typing.golden`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntSliceVar(&opts.Cursor, "cursor", []int{16, 3}, "starting cursor x,y")
	cmd.Flags().IntSliceVar(&opts.Size, "size", []int{120, 9001}, "screen buffer width,height")
	cmd.Flags().IntVar(&opts.Attributes, "attr", 0x07, "character attributes")
	cmd.Flags().IntVar(&opts.PromptColumn, "prompt-column", 0, "caret column after the prompt (default: starting cursor x)")

	return cmd
}

func (o *PredictOptions) snapshot() (console.Snapshot, error) {
	if len(o.Cursor) != 2 {
		return console.Snapshot{}, errors.New("--cursor takes x,y")
	}
	if len(o.Size) != 2 || o.Size[0] <= 0 || o.Size[1] <= 0 {
		return console.Snapshot{}, errors.New("--size takes a positive width,height")
	}
	return console.Snapshot{
		Cursor:     console.Coord{X: o.Cursor[0], Y: o.Cursor[1]},
		Attributes: o.Attributes,
		BufferSize: console.Coord{X: o.Size[0], Y: o.Size[1]},
		Viewport:   console.Rect{Left: 0, Top: 0, Right: o.Size[0] - 1, Bottom: min(o.Size[1], 30) - 1},
	}, nil
}

func runPredict(opts *PredictOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	s, err := opts.snapshot()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid console state", err)
	}

	sc, err := harness.LoadScenario(path)
	if err != nil {
		_ = f.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}

	column := opts.PromptColumn
	if column <= 0 {
		column = s.Cursor.X
	}

	doc := trace.Document{Scenario: sc.Name, Steps: make([]trace.Step, 0, len(sc.Steps))}
	for i, step := range sc.Steps {
		action, err := step.Action(column)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d", i), err)
		}
		if ta, ok := action.(predict.TypeAction); ok && predict.Overflows(s, ta.Text) {
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d", i), harness.ErrUnmodeledWrap)
		}

		var recs []notify.Record
		recs, s = action.Predict(s)
		doc.Steps = append(doc.Steps, trace.Step{Name: step.Label(action), Expected: recs})
	}

	if f.JSON() {
		data, err := trace.MarshalDocument(doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scenario: %s\n", sc.Name)
	for i, st := range doc.Steps {
		fmt.Fprintf(w, "\nstep %d: %s (%d records)\n", i, st.Name, len(st.Expected))
		fmt.Fprint(w, trace.Format(st.Expected))
	}
	fmt.Fprintf(w, "\nFinal state: %s\n", s)
	return nil
}
