package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

// replCmd is a thin read-compile-dump loop over the pipeline: each entry
// is compiled as a full program (definitions accumulate across entries)
// and the toplevel expression's type is reported.
func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "interactive compile loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			histFile := filepath.Join(os.TempDir(), ".shiikac_history")
			if f, err := os.Open(histFile); err == nil {
				line.ReadHistory(f)
				f.Close()
			}
			defer func() {
				if f, err := os.Create(histFile); err == nil {
					line.WriteHistory(f)
					f.Close()
				}
			}()

			prompt := color.New(color.FgCyan).Sprint("shiika> ")
			var defs []string
			for {
				input, err := line.Prompt(prompt)
				if err != nil { // EOF or Ctrl-C
					fmt.Println()
					return nil
				}
				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}
				line.AppendHistory(input)

				src := strings.Join(append(append([]string{}, defs...), input), "\n")
				h, _, herr := elaborate([]byte(src), "(repl)")
				if herr != nil {
					printErr(herr)
					continue
				}
				if isDefinition(input) {
					defs = append(defs, input)
					fmt.Println("defined")
					continue
				}
				fmt.Printf("=> %s\n", h.Toplevel.Ty)
			}
		},
	}
}

func isDefinition(input string) bool {
	for _, kw := range []string{"class ", "module ", "enum "} {
		if strings.HasPrefix(input, kw) {
			return true
		}
	}
	return false
}
