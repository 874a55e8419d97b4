package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/deps"
	"librarian/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external tools enabled features need",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(results))
			missing := 0
			for _, result := range results {
				state := "available"
				detail := result.Path
				if !result.Available {
					state = "missing"
					detail = result.Detail
					if !result.Optional {
						missing++
					}
				}
				rows = append(rows, []string{result.Name, result.Command, state, yesNo(!result.Optional), detail, result.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Command", "Status", "Required", "Detail", "Used for"}, rows, nil))

			if missing > 0 {
				return services.Wrap(services.ErrConfiguration, "deps", "check tools",
					fmt.Sprintf("%d required tool(s) missing", missing), nil)
			}
			return nil
		},
	}
}
