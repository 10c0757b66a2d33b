package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridsmith/sldgen/pkg/symbols"
)

// symbolsCommand creates the symbols command for inspecting the catalog.
func (c *CLI) symbolsCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "symbols [type]",
		Short: "Inspect the drawing symbol catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := symbols.Default()
			if file != "" {
				var err error
				lib, err = symbols.Load(file)
				if err != nil {
					return err
				}
			}

			if len(args) == 0 {
				for _, typ := range lib.Types() {
					sym, _ := lib.Get(typ)
					printKeyValue(typ, fmt.Sprintf("%.0fx%.0f, %d terminals",
						sym.Width, sym.Height, len(sym.Terminals)))
				}
				return nil
			}

			sym, err := lib.Get(args[0])
			if err != nil {
				return err
			}
			printKeyValue("size", fmt.Sprintf("%.0fx%.0f", sym.Width, sym.Height))
			for i, t := range sym.Terminals {
				printKeyValue(fmt.Sprintf("terminal %d", i),
					fmt.Sprintf("(%.0f, %.0f) %s", t.X, t.Y, t.Orientation))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "symbol catalog JSON file (default built-in)")
	return cmd
}
