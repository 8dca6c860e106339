package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/personakit/persona"
	"github.com/personakit/persona/internal/logging"
	"github.com/personakit/persona/pkg/adapters/memory"
	redisadapter "github.com/personakit/persona/pkg/adapters/redis"
	"github.com/personakit/persona/pkg/adapters/yamlfile"
	"github.com/personakit/persona/pkg/observability"
	"github.com/personakit/persona/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Persona runs conversational bot personas defined as state graphs",
	Long: `Persona executes data-driven bot personas: a state graph, a form schema
and a view map describe the dialogue, and the engine advances live
conversations through the graph in response to events.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("definitions", "./personas", "Directory containing persona definition YAML files")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for conversation persistence (empty: in-memory)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// buildEngine wires stores, metrics and logging from the root flags and
// registers every definition found in the definitions directory. It returns
// the engine, the persona ids keyed by name, and the metrics registry.
func buildEngine(cmd *cobra.Command, extra ...persona.Option) (*persona.Engine, map[string]string, *prometheus.Registry, error) {
	level, _ := cmd.Flags().GetString("log-level")
	logger := logging.New(logging.ParseLevel(level))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.New(registry)

	var conversations ports.ConversationStore
	opts := []persona.Option{
		persona.WithLogger(logger),
		persona.WithMetrics(metrics),
	}

	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		store := redisadapter.New(addr, "", 0)
		conversations = store
		opts = append(opts, persona.WithLocker(redisadapter.NewLocker(store.Client(), "persona:")))
		logger.Info("using redis conversation store", "addr", addr)
	} else {
		conversations = memory.NewConversationStore()
	}
	opts = append(opts, extra...)

	engine := persona.New(memory.NewPersonaStore(), conversations, opts...)

	dir, _ := cmd.Flags().GetString("definitions")
	ids, err := loadDefinitions(cmd.Context(), engine, dir, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return engine, ids, registry, nil
}

func loadDefinitions(ctx context.Context, engine *persona.Engine, dir string, logger *slog.Logger) (map[string]string, error) {
	specs, err := yamlfile.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load definitions from %s: %w", dir, err)
	}

	ids := make(map[string]string, len(specs))
	for _, spec := range specs {
		id, err := engine.DefinePersona(ctx, spec.Name, spec.StateGraph, spec.FormSchema, spec.ViewMap)
		if err != nil {
			return nil, fmt.Errorf("persona %q: %w", spec.Name, err)
		}
		ids[spec.Name] = id
	}
	logger.Info("personas loaded", "dir", dir, "count", len(ids))
	return ids, nil
}
