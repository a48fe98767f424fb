package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/fract/lib/codec"
)

func newApplyCmd(a *app) *cobra.Command {
	var docPath, envPath, format string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an envelope file to an HTML document",
		Long: `Reads an envelope (JSON or MessagePack) and applies it to the document,
printing the updated HTML. Use --envelope - to read the envelope from stdin.`,
		Example: `  fract apply --doc page.html --envelope resp.json
  curl -s -H 'Accept: application/msgpack' localhost:8080/cart | fract apply --doc page.html --format msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readEnvelope(cmd.InOrStdin(), envPath)
			if err != nil {
				return err
			}
			contentType, err := envelopeType(format, envPath)
			if err != nil {
				return err
			}

			doc, err := a.loadDocument(docPath)
			if err != nil {
				return err
			}
			applier, err := a.newApplier(doc)
			if err != nil {
				return err
			}

			out, applyErr := applier.ApplyBytes(cmd.Context(), contentType, data)
			return a.finish(cmd, doc, out, applyErr)
		},
	}

	cmd.Flags().StringVar(&docPath, "doc", "", "HTML document to update")
	cmd.Flags().StringVarP(&envPath, "envelope", "e", "-", "envelope file, - for stdin")
	cmd.Flags().StringVar(&format, "format", "auto", "envelope encoding: auto, json or msgpack")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func readEnvelope(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// envelopeType maps --format to a content type. "auto" looks at the file
// extension and falls back to JSON.
func envelopeType(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return codec.JSON, nil
	case "msgpack", "mpk":
		return codec.Msgpack, nil
	case "auto", "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".msgpack", ".mpk":
			return codec.Msgpack, nil
		}
		return codec.JSON, nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}
