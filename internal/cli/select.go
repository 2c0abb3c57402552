package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rollfed/gangrun/pkg/plan"
)

// selectCommand creates the select command for changing the chosen layout.
func (c *CLI) selectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [order.plan.json] [layout-id]",
		Short: "Change which layout candidate is selected",
		Long: `Change which layout candidate is selected.

With a layout id, the selection moves to that candidate. Without one, an
interactive picker opens. The selection drives viz and impose; scores and
metrics are untouched.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return c.runSelect(cmd.Context(), args[0], id)
		},
	}

	return cmd
}

// runSelect moves the document selection and writes the document back.
func (c *CLI) runSelect(ctx context.Context, input, id string) error {
	doc, err := plan.ImportDocument(input)
	if err != nil {
		return err
	}

	if id == "" {
		id, err = pickLayout(doc)
		if err != nil {
			return err
		}
		if id == "" {
			printInfo("Selection unchanged")
			return nil
		}
	}

	if err := doc.Select(id); err != nil {
		return err
	}
	if err := plan.ExportDocument(doc, input); err != nil {
		return err
	}

	printSuccess("Selected %s", id)
	printFile(input)
	printNewline()
	printOptions(doc)

	return nil
}
