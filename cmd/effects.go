package cmd

import (
	"fmt"

	"voicemorph/pkg/effects"

	"github.com/spf13/cobra"
)

// effectsCmd represents the effects command
var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List the available audio effects",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		for _, effect := range effects.NewCatalog().List() {
			fmt.Printf("%-10s %-28s %s\n", effect.ID, effect.DisplayName, effect.Chain.Graph())
		}
	},
}

func init() {
	rootCmd.AddCommand(effectsCmd)
}
