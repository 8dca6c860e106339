package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/personakit/persona"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the persona engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(persona.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
