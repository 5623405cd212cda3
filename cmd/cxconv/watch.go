package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"cxbin-converter/internal/batch"
	"cxbin-converter/internal/convert"
	"cxbin-converter/internal/report"
	"cxbin-converter/internal/watch"
)

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Convert containers as they are written into a directory",
		Long: `watch converts every .cxbin file created or rewritten in <dir> (and its
subdirectories with -r) until interrupted. In --json mode each report is
printed as one JSON line.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.setup()
			if err != nil {
				return err
			}
			w, err := watch.New(args[0], watch.Options{
				Recursive: s.cfg.Recursive,
				Ext:       batch.Ext,
				Logger:    s.log,
			})
			if err != nil {
				return &convert.IOError{Op: "watch", Path: args[0], Err: err}
			}

			r := &report.Renderer{Out: a.stdout}
			enc := json.NewEncoder(a.stdout)
			enc.SetEscapeHTML(false)

			return w.Run(commandContext(cmd), func(ctx context.Context, path string) {
				job := s.job
				job.Input = path
				rep := s.conv.Convert(ctx, job)
				if rep.Success {
					s.log.Info("converted", "input", path, "outputs", rep.Outputs)
				} else {
					s.log.Error("conversion failed", "input", path, "kind", rep.ErrorKind, "err", rep.Err())
				}
				if a.opts.jsonOut {
					if err := enc.Encode(report.Compact(rep)); err != nil {
						s.log.Error("write report", "err", err)
					}
					return
				}
				r.Report(rep)
			})
		},
	}
}
