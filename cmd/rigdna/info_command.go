package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rigdna/internal/dna"
)

type documentInfo struct {
	Name          string    `json:"name"`
	ID            string    `json:"id"`
	Version       uint16    `json:"version"`
	Joints        int       `json:"joints"`
	LODs          []lodInfo `json:"lods"`
	BlendShapes   []string  `json:"blendShapes"`
	AnimatedMaps  []string  `json:"animatedMaps"`
	Graph         graphInfo `json:"behaviorGraph"`
	LowConfidence int       `json:"lowConfidenceVertices"`
}

type lodInfo struct {
	Mesh      string `json:"mesh"`
	Vertices  int    `json:"vertices"`
	Triangles int    `json:"triangles"`
	HasUVs    bool   `json:"hasUVs"`
}

type graphInfo struct {
	Controls       int `json:"controls"`
	Expressions    int `json:"psdExpressions"`
	Solvers        int `json:"rbfSolvers"`
	JointBehaviors int `json:"jointBehaviors"`
	ShapeBehaviors int `json:"shapeBehaviors"`
	MapBehaviors   int `json:"mapBehaviors"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Summarize a rig document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := dna.Load(args[0])
			if err != nil {
				return err
			}

			info := buildDocumentInfo(doc)
			if asJSON {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Name", info.Name},
					{"ID", info.ID},
					{"Format version", strconv.Itoa(int(info.Version))},
					{"Joints", strconv.Itoa(info.Joints)},
					{"Blend shapes", strconv.Itoa(len(info.BlendShapes))},
					{"Animated maps", strconv.Itoa(len(info.AnimatedMaps))},
					{"Low-confidence vertices", strconv.Itoa(info.LowConfidence)},
				},
				[]columnAlignment{alignLeft, alignLeft},
			))

			lodRows := make([][]string, 0, len(info.LODs))
			for i, lod := range info.LODs {
				lodRows = append(lodRows, []string{
					strconv.Itoa(i),
					lod.Mesh,
					strconv.Itoa(lod.Vertices),
					strconv.Itoa(lod.Triangles),
					yesNo(lod.HasUVs),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"LOD", "Mesh", "Vertices", "Triangles", "UVs"},
				lodRows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))

			g := info.Graph
			fmt.Fprintln(out, renderTable(
				[]string{"Behavior graph", "Count"},
				[][]string{
					{"Controls", strconv.Itoa(g.Controls)},
					{"PSD expressions", strconv.Itoa(g.Expressions)},
					{"RBF solvers", strconv.Itoa(g.Solvers)},
					{"Joint behaviors", strconv.Itoa(g.JointBehaviors)},
					{"Shape behaviors", strconv.Itoa(g.ShapeBehaviors)},
					{"Map behaviors", strconv.Itoa(g.MapBehaviors)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func buildDocumentInfo(doc *dna.Document) documentInfo {
	meta := doc.Meta()
	info := documentInfo{
		Name:          meta.Name,
		ID:            meta.ID,
		Version:       doc.Version(),
		Joints:        doc.JointCount(),
		LowConfidence: len(meta.LowConfidence),
	}
	for i := range doc.Meshes() {
		m := &doc.Meshes()[i]
		info.LODs = append(info.LODs, lodInfo{
			Mesh:      m.Name,
			Vertices:  len(m.Positions),
			Triangles: len(m.Triangles),
			HasUVs:    len(m.UVs) > 0,
		})
	}
	for _, s := range doc.BlendShapes() {
		info.BlendShapes = append(info.BlendShapes, s.Name)
	}
	for _, m := range doc.AnimatedMaps() {
		info.AnimatedMaps = append(info.AnimatedMaps, m.Name)
	}
	g := doc.Graph()
	info.Graph = graphInfo{
		Controls:       len(g.Controls),
		Expressions:    len(g.Expressions),
		Solvers:        len(g.Solvers),
		JointBehaviors: len(g.JointBehaviors),
		ShapeBehaviors: len(g.ShapeBehaviors),
		MapBehaviors:   len(g.MapBehaviors),
	}
	return info
}
