package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/personakit/persona"
	"github.com/personakit/persona/internal/cli"
	"github.com/personakit/persona/internal/presentation/console"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a persona as an interactive terminal chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("persona")

		renderer := console.NewRenderer(os.Stdout)
		engine, ids, _, err := buildEngine(cmd, persona.WithPresenter(renderer))
		if err != nil {
			return err
		}

		personaID, ok := ids[name]
		if !ok {
			if name == "" && len(ids) == 1 {
				for _, id := range ids {
					personaID = id
				}
			} else {
				return fmt.Errorf("persona %q is not defined (have %d definitions)", name, len(ids))
			}
		}

		chat := &cli.Chat{
			Engine: engine,
			In:     os.Stdin,
			Out:    os.Stdout,
		}
		return chat.Run(cmd.Context(), personaID, uuid.NewString())
	},
}

func init() {
	runCmd.Flags().String("persona", "", "Persona name to run (optional when exactly one is defined)")
	rootCmd.AddCommand(runCmd)
}
