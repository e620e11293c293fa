package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/and161185/signator/internal/convert"
	"github.com/and161185/signator/internal/pdfdoc"
)

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newPDFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Inspect PDFs locally, the way the server sees them",
	}

	info := &cobra.Command{
		Use:   "info [file]",
		Short: "Print page count and page sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readAll(args[0])
			if err != nil {
				return err
			}
			in, err := pdfdoc.Inspect(src)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), convert.ToMetadata(in, nil))
		},
	}

	var (
		page int
		out  string
	)
	extract := &cobra.Command{
		Use:   "page [file]",
		Short: "Extract one page into a standalone PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readAll(args[0])
			if err != nil {
				return err
			}
			b, err := pdfdoc.ExtractPage(src, page)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(out, b, 0o600); err != nil {
				return err
			}
			cmd.PrintErrf("wrote page %d to %s (%d bytes)\n", page, out, len(b))
			return nil
		},
	}
	extract.Flags().IntVar(&page, "page", 1, "1-based page number")
	extract.Flags().StringVarP(&out, "output", "o", "", "output file ('-' or empty = stdout)")

	text := &cobra.Command{
		Use:   "text [file]",
		Short: "Print the extracted text used for summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readAll(args[0])
			if err != nil {
				return err
			}
			s, err := pdfdoc.ExtractText(src)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}

	cmd.AddCommand(info, extract, text)
	return cmd
}
