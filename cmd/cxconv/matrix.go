package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cxbin-converter/internal/batch"
	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/export"
)

func (a *app) matrixCommand() *cobra.Command {
	var (
		only []string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "matrix <input>",
		Short: "Convert every container into every format and write a JSON report",
		Long: `matrix converts each container found at <input> into every supported format,
or only the formats given with --only, and writes one JSON report keyed by
input path. Multi-file formats get "{stem}_{fmt}" bundles unless
--output-name is set.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.setup()
			if err != nil {
				return err
			}
			table := s.conv.Dispatcher().Table()

			formats := table.Specs()
			if len(only) > 0 {
				formats = formats[:0]
				seen := make(map[export.Format]bool)
				for _, name := range only {
					spec, err := table.Parse(name)
					if err != nil {
						return err
					}
					if !seen[spec.Format] {
						seen[spec.Format] = true
						formats = append(formats, spec)
					}
				}
			}

			inputs, err := batch.Gather(args[0], s.cfg.Recursive)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errNoInputs
			}
			names := make([]string, len(formats))
			for i, f := range formats {
				names[i] = f.Name
			}
			s.log.Info("matrix", "inputs", len(inputs), "formats", names, "zip", s.job.Zip)

			rep, runErr := batch.RunMatrix(commandContext(cmd), batch.Config{
				Converter: s.conv,
				Job:       s.job,
				Workers:   s.cfg.Workers,
				Logger:    s.log,
				OnReport: func(_ int, r convert.Report) {
					if r.Success {
						s.log.Info("converted", "input", r.Input, "format", r.Format)
					} else {
						s.log.Error("failed", "input", r.Input, "format", r.Format, "kind", r.ErrorKind, "err", r.Err())
					}
				},
			}, inputs, formats)
			if runErr != nil && convert.Kind(runErr) != convert.KindPartialBatch {
				return runErr
			}

			if err := batch.WriteMatrixReport(out, rep); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote report: %s (%d conversions, %d failed)\n", out, rep.Total, rep.Failed)
			if runErr != nil {
				return &reportedError{runErr}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "only run these formats, e.g. --only obj,gltf,glb")
	cmd.Flags().StringVar(&out, "out", "batch_results.json", "path of the JSON report")
	return cmd
}
