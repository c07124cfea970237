package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/maruel/dsinspect/internal/config"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
	"github.com/spf13/cobra"
)

// maxShownFailures limits the failures printed per dataset.
const maxShownFailures = 10

func newVerifyCmd(o *rootOptions) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "verify [name...]",
		Short: "Check that every record can be read and decoded",
		Long:  "Reads every record of the named datasets, or of all datasets, and fails if any is out of range or cannot be decoded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := dataset.Discover(ctx, o.datasetsDir)
			if err != nil {
				return err
			}
			datasets := reg.All()
			if len(args) != 0 {
				datasets = make([]*dataset.Dataset, 0, len(args))
				for _, name := range args {
					ds, err := reg.Get(name)
					if err != nil {
						return err
					}
					datasets = append(datasets, ds)
				}
			}
			if len(datasets) == 0 {
				return errors.New("no dataset to verify")
			}
			reports, err := inspect.NewResolver(field).VerifyAll(ctx, datasets)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, rep := range reports {
				_, _ = fmt.Fprintf(out, "%s: %s records, %s, %d failures\n", rep.Dataset, humanize.Comma(int64(rep.Records)), humanize.Bytes(uint64(rep.Size)), len(rep.Failures))
				for i := range rep.Failures {
					if i == maxShownFailures {
						_, _ = fmt.Fprintf(out, "  ... %d more\n", len(rep.Failures)-i)
						break
					}
					_, _ = fmt.Fprintf(out, "  %v\n", &rep.Failures[i])
				}
				if !rep.OK() {
					failed++
					slog.WarnContext(ctx, "Dataset has unreadable records", "dataset", rep.Dataset, "failures", len(rep.Failures))
				}
			}
			if failed != 0 {
				return fmt.Errorf("%d of %d datasets failed verification", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "payload-field", config.Default().PayloadField, "Record field holding the image")
	return cmd
}
