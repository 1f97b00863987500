package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"coordinator/internal/manifest"
)

// newConvertManifestCmd reads an XML manifest and writes it back out,
// directly exercising C1's two printers: as Nix when out ends in .nix,
// otherwise as XML. The input is always parsed as XML; Nix input is not
// read.
func newConvertManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert-manifest <in> <out>",
		Short: "Convert an XML manifest to XML or Nix surface form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]

			m, err := loadManifestFile(in)
			if err != nil {
				return fmt.Errorf("load %s: %w", in, err)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			if isNixPath(out) {
				return manifest.WriteNix(f, m)
			}
			return manifest.WriteXML(f, m)
		},
	}
}

func isNixPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".nix")
}
