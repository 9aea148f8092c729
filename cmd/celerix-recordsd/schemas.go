package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-records/internal/catalog"
	"github.com/celerix-dev/celerix-records/internal/config"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Print the JSON Schema of every catalog entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		entities, err := catalog.Load(cfg.Catalog.File)
		if err != nil {
			return err
		}

		out := make(map[string]any, len(entities))
		for _, e := range entities {
			out[e.Prefix] = e.Schema.JSONSchema()
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
