package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/maruel/dsinspect/internal/codec"
	"github.com/maruel/dsinspect/internal/config"
	"github.com/maruel/dsinspect/internal/pack"
	"github.com/spf13/cobra"
)

func newPackCmd() *cobra.Command {
	po := &pack.Options{}
	var codecName string
	reg := codec.Default()
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a dataset from a directory of rendered glyphs",
		Long: "Builds a dataset from images laid out as <src>/<font>/<label>.png. " +
			"The label is the path-unescaped file name, the record hash is the blake3 digest of the image.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if po.Src == "" || po.Out == "" {
				return errors.New("--src and --out are required")
			}
			c, ok := reg.ByName(codecName)
			if !ok {
				return fmt.Errorf("unknown codec %q, valid: %s", codecName, strings.Join(reg.Names(), ", "))
			}
			po.Codec = c
			if po.Source == "" {
				po.Source = po.Src
			}
			st, err := pack.Pack(cmd.Context(), po)
			if err != nil {
				return err
			}
			slog.InfoContext(cmd.Context(), "Packed dataset", "out", po.Out, "codec", c.Name(), "duplicates", st.Duplicates)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s records from %d fonts, %s\n", po.Out, humanize.Comma(int64(st.Records)), st.Fonts, humanize.Bytes(st.Bytes))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&po.Src, "src", "", "Directory with one sub-directory of images per font")
	f.StringVar(&po.Out, "out", "", "Dataset directory to create")
	f.StringVar(&codecName, "codec", "cbor", "Record codec: "+strings.Join(reg.Names(), ", "))
	f.StringVar(&po.Field, "payload-field", config.Default().PayloadField, "Record field holding the image")
	f.StringVar(&po.Source, "source", "", "Value of the metadata source field (default: --src)")
	f.StringVar(&po.Content, "content", "", "Value of the metadata content field")
	return cmd
}
