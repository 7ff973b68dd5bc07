package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/core/parse"
)

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print the structure summary the comparison starts from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			doc, err := parse.Open(args[0], parse.WithLogger(log))
			if err != nil {
				return err
			}
			inspect(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

func inspect(w io.Writer, doc *object.Document) {
	fmt.Fprintf(w, "version: %s\n", doc.Version)
	fmt.Fprintf(w, "objects: %d\n", len(doc.ObjectNumbers()))
	fmt.Fprintf(w, "pages: %d\n", doc.PageCount())

	if cat, ref, ok := doc.Catalog(); ok {
		fmt.Fprintf(w, "catalog: %s\n", ref)
		for _, k := range cat.Keys() {
			fmt.Fprintf(w, "  %s %s\n", k, object.Short(cat.Get(k)))
		}
	}
	if info, ref, ok := doc.Info(); ok {
		fmt.Fprintf(w, "info: %s\n", ref)
		for _, k := range info.Keys() {
			fmt.Fprintf(w, "  %s %s\n", k, object.Short(doc.Resolve(info.Get(k))))
		}
	}
	for _, warn := range doc.Warnings().Warnings() {
		fmt.Fprintf(w, "warning: %s\n", warn.Error())
	}
}
