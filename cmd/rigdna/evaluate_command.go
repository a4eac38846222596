package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rigdna/internal/dna"
	"rigdna/internal/riglogic"
)

type evaluationOutput struct {
	Controls map[string]float32   `json:"controls"`
	Joints   map[string][]float32 `json:"jointDeltas"`
	Shapes   map[string]float32   `json:"blendShapeWeights"`
	Maps     map[string]float32   `json:"animatedMapWeights"`
}

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var controlsSpec string
	var controlsFile string
	var showAll bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate <file>",
		Short: "Run the behavior graph for a set of control values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := gatherControls(controlsSpec, controlsFile)
			if err != nil {
				return err
			}

			doc, err := dna.Load(args[0])
			if err != nil {
				return err
			}
			rig, err := riglogic.NewRig(doc)
			if err != nil {
				return err
			}
			inst := riglogic.NewInstance(rig)
			for name, value := range values {
				if !inst.SetControlByName(name, value) {
					return fmt.Errorf("unknown control %q (document has: %s)", name, strings.Join(controlNames(rig), ", "))
				}
			}
			inst.Evaluate()

			output := buildEvaluationOutput(rig, inst, showAll)
			if asJSON {
				return writeJSON(cmd, output)
			}
			renderEvaluation(cmd, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&controlsSpec, "controls", "", "Control values as name=value pairs separated by commas")
	cmd.Flags().StringVar(&controlsFile, "controls-file", "", "JSON file of control name to value")
	cmd.Flags().BoolVar(&showAll, "all", false, "Include outputs that evaluated to zero")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func gatherControls(spec, file string) (map[string]float32, error) {
	values := make(map[string]float32)
	if file != "" {
		fromFile, err := loadControlFile(file)
		if err != nil {
			return nil, err
		}
		for name, v := range fromFile {
			values[name] = v
		}
	}
	if spec != "" {
		fromSpec, err := parseControlAssignments(spec)
		if err != nil {
			return nil, err
		}
		// Inline assignments win over the file.
		for name, v := range fromSpec {
			values[name] = v
		}
	}
	return values, nil
}

func controlNames(rig *riglogic.Rig) []string {
	names := make([]string, 0, rig.ControlCount())
	for i := 0; i < rig.ControlCount(); i++ {
		names = append(names, rig.ControlName(i))
	}
	return names
}

func buildEvaluationOutput(rig *riglogic.Rig, inst *riglogic.Instance, showAll bool) evaluationOutput {
	out := evaluationOutput{
		Controls: make(map[string]float32),
		Joints:   make(map[string][]float32),
		Shapes:   make(map[string]float32),
		Maps:     make(map[string]float32),
	}
	for i, v := range inst.Controls() {
		out.Controls[rig.ControlName(i)] = v
	}
	for j := 0; j < rig.JointCount(); j++ {
		delta := inst.JointDelta(j)
		if !showAll && delta == (dna.JointOutput{}) {
			continue
		}
		out.Joints[rig.JointName(j)] = append([]float32(nil), delta[:]...)
	}
	for i, w := range inst.ShapeWeights() {
		if !showAll && w == 0 {
			continue
		}
		out.Shapes[rig.ShapeName(i)] = w
	}
	for i, w := range inst.MapWeights() {
		if !showAll && w == 0 {
			continue
		}
		out.Maps[rig.MapName(i)] = w
	}
	return out
}

func renderEvaluation(cmd *cobra.Command, output evaluationOutput) {
	out := cmd.OutOrStdout()

	jointRows := make([][]string, 0, len(output.Joints))
	for _, name := range sortedKeys(output.Joints) {
		d := output.Joints[name]
		row := []string{name}
		for _, v := range d {
			row = append(row, formatWeight(v))
		}
		jointRows = append(jointRows, row)
	}
	if len(jointRows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Joint", "TX", "TY", "TZ", "RX", "RY", "RZ", "SX", "SY", "SZ"},
			jointRows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	} else {
		fmt.Fprintln(out, "No joint deltas")
	}

	fmt.Fprintln(out, renderScalarTable("Blend shape", output.Shapes))
	fmt.Fprintln(out, renderScalarTable("Animated map", output.Maps))
}

func renderScalarTable(label string, weights map[string]float32) string {
	if len(weights) == 0 {
		return "No " + strings.ToLower(label) + " weights"
	}
	rows := make([][]string, 0, len(weights))
	for _, name := range sortedKeys(weights) {
		rows = append(rows, []string{name, formatWeight(weights[name])})
	}
	return renderTable(
		[]string{label, "Weight"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
