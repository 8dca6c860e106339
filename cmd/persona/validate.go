package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/personakit/persona/pkg/adapters/yamlfile"
	"github.com/personakit/persona/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every persona definition in the definitions directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("definitions")

		specs, err := yamlfile.LoadDir(dir)
		if err != nil {
			return err
		}
		if len(specs) == 0 {
			return fmt.Errorf("no persona definitions found in %s", dir)
		}

		failed := 0
		for _, spec := range specs {
			_, err := domain.NewPersonaDefinition("validate", spec.Name, spec.StateGraph, spec.FormSchema, spec.ViewMap)
			if err != nil {
				failed++
				fmt.Printf("FAIL  %s\n      %v\n", spec.Name, err)
				continue
			}
			fmt.Printf("OK    %s (%d states, %d transitions)\n",
				spec.Name, len(spec.StateGraph.States), len(spec.StateGraph.Transitions))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d definitions are invalid", failed, len(specs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
