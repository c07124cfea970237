package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/spf13/cobra"
)

func newListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := dataset.Discover(cmd.Context(), o.datasetsDir)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tRECORDS\tINVALID\tFONTS\tDONE\tSIZE")
			for _, name := range reg.Names() {
				ds, err := reg.Get(name)
				if err != nil {
					return err
				}
				info := ds.Info()
				size := "?"
				if st, err := os.Stat(ds.ContainerPath); err == nil {
					size = humanize.Bytes(uint64(st.Size()))
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d/%d\t%s\n",
					name,
					humanize.Comma(int64(len(ds.Records()))),
					len(info.InvalidRecords),
					len(info.InvalidFonts),
					len(info.CompletedLabels), len(info.Labels),
					size)
			}
			return w.Flush()
		},
	}
}
