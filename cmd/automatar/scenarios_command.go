package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newScenariosCommand(ctx *commandContext) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if dump {
				data, err := catalog.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			all := catalog.All()
			sort.Slice(all, func(i, j int) bool { return all[i].IdentifierTag < all[j].IdentifierTag })

			rows := make([][]string, 0, len(all))
			for _, sc := range all {
				objects := make([]string, 0, len(sc.Objects))
				for _, o := range sc.Objects {
					objects = append(objects, fmt.Sprintf("%d=%s", o.Tag, o.ModelPath))
				}
				rows = append(rows, []string{
					strconv.Itoa(sc.IdentifierTag),
					sc.Name,
					strings.Join(objects, ", "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Tag", "Name", "Objects"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "yaml", false, "Print the catalog as YAML (usable as catalog.path)")
	return cmd
}
