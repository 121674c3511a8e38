package cmd

import (
	"log"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/sampler"
)

// DotOutput writes the group level weights used by simulate as a graphviz
// graph, with the Rho domain they imply as the label
func DotOutput(sp *startupParams) error {
	if sp.groups < 3 {
		return errors.Errorf("Need at least 3 groups for a ring, got %d", sp.groups)
	}

	M, err := ringWeights(sp.groups)
	if err != nil {
		return err
	}
	M = M.Scale(0.5) // every ring row has two links
	bounds, err := sampler.ComputeBounds(M, sampler.Truncation{Mode: sampler.TruncateEigs})
	if err != nil {
		return err
	}

	var target *log.Logger
	if len(sp.traceFile) > 0 {
		sp.out.Printf("Writing graph to trace file %v\n", sp.traceFile)
		target = sp.trace
	} else {
		target = sp.out
	}

	writeDot(target, M, bounds)
	return nil
}

// writeDot prints every link of M once; the matrix is taken as undirected
func writeDot(target *log.Logger, M *linalg.CSR, bounds sampler.Bounds) {
	target.Printf("strict graph G {\n")
	target.Printf("    label=\"Rho in (%.4f, %.4f)\";\n", bounds.Min, bounds.Max)
	for i := 0; i < M.Rows; i++ {
		target.Printf("    g%d;\n", i)
	}
	for i := 0; i < M.Rows; i++ {
		M.Row(i, func(j int, v float64) {
			if j > i {
				target.Printf("    g%d -- g%d;\n", i, j)
			}
		})
	}
	target.Printf("}\n")
}
