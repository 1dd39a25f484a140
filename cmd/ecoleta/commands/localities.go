package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(citiesCmd)
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "List the brazilian states (UFs).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := env.app.Ibge.States(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout(), table.Row{"UF", "Name", "Region"})
		for _, s := range states {
			t.AppendRow(table.Row{s.Sigla, s.Nome, s.Regiao.Nome})
		}
		t.Render()
		return nil
	},
}

var citiesCmd = &cobra.Command{
	Use:   "cities <uf>",
	Short: "List the cities of a state.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		municipalities, err := env.app.Ibge.Municipalities(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout(), table.Row{"ID", "City"})
		for _, m := range municipalities {
			t.AppendRow(table.Row{m.ID, m.Nome})
		}
		t.Render()
		return nil
	},
}
