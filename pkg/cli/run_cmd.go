package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"genie-copilot/internal/classify"
	"genie-copilot/internal/config"
	"genie-copilot/internal/databricks"
	"genie-copilot/internal/domain"
	"genie-copilot/internal/llm"
	"genie-copilot/internal/materialize"
	"genie-copilot/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var (
		spaceID          string
		catalog          string
		schema           string
		warehouseID      string
		model            string
		threshold        = tierValue{tier: domain.TierComplex}
		maxConversations int
		includeAllUsers  bool
		dryRun           bool
		force            bool

		sqlInstructions   bool
		ucFunctions       bool
		registerFunctions bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mine, classify and curate queries from a Genie space",
		Long: `Walk the conversations of a Genie space, extract successfully executed SQL,
classify each unique query's complexity with an LLM, and materialize queries
at or above the threshold as curated instructions and catalog functions.`,
		Example: `  # Dry run against a space
  genie-copilot run --space-id 01ef... --catalog main --schema genie --dry-run

  # Materialize complex queries, creating functions on a warehouse
  genie-copilot run --space-id 01ef... --catalog main --schema genie \
    --warehouse-id abc123 --threshold COMPLEX`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			// Root flags already resolved flag > env > profile.
			if v, _ := cmd.Root().PersistentFlags().GetString("host"); v != "" {
				cfg.Host = strings.TrimRight(v, "/")
			}
			if v, _ := cmd.Root().PersistentFlags().GetString("token"); v != "" {
				cfg.Token = v
			}
			if cmd.Flags().Changed("model") {
				cfg.Model = model
			}

			// Profile defaults for run targets.
			if userCfg, err := LoadUserConfig(); err == nil {
				profileName, _ := cmd.Root().PersistentFlags().GetString("profile")
				p := userCfg.ActiveProfile(profileName)
				if spaceID == "" {
					spaceID = p.SpaceID
				}
				if catalog == "" {
					catalog = p.Catalog
				}
				if schema == "" {
					schema = p.Schema
				}
				if warehouseID == "" {
					warehouseID = p.WarehouseID
				}
			}

			if spaceID == "" {
				return fmt.Errorf("--space-id is required")
			}
			if catalog == "" || schema == "" {
				return fmt.Errorf("--catalog and --schema are required")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			})).With("run_id", uuid.NewString())
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			client := databricks.NewClient(cfg.Host, cfg.Token, cfg.HTTPTimeout, logger)

			var completions domain.CompletionClient
			switch cfg.Provider {
			case config.ProviderGemini:
				completions, err = llm.NewGeminiClient(cmd.Context(), cfg.GeminiAPIKey)
				if err != nil {
					return err
				}
			default:
				completions = llm.NewServingClient(cfg.Host, cfg.Token, cfg.HTTPTimeout)
			}

			runner := pipeline.New(pipeline.Deps{
				Source:       client,
				Completions:  completions,
				Instructions: client,
				Registry:     client,
				Logger:       logger,
			})

			res, runErr := runner.Run(cmd.Context(), pipeline.Options{
				SpaceID:          spaceID,
				Catalog:          catalog,
				Schema:           schema,
				WarehouseID:      warehouseID,
				Model:            cfg.Model,
				Threshold:        threshold.tier,
				MaxConversations: maxConversations,
				IncludeAllUsers:  includeAllUsers,
				DryRun:           dryRun,
				Force:            force,
				Toggles: materialize.Toggles{
					SQLInstructions:   sqlInstructions,
					UCFunctions:       ucFunctions,
					RegisterFunctions: registerFunctions,
				},
				ClassifyConcurrency: cfg.ClassifyConcurrency,
				ClassifyRPS:         cfg.ClassifyRPS,
				Retry: classify.RetryPolicy{
					MaxAttempts: cfg.RetryMaxAttempts,
					BaseDelay:   cfg.RetryBaseDelay,
					Jitter:      classify.DefaultRetryPolicy.Jitter,
				},
			})

			// The summary is reported even when the run aborted mid-flight.
			if res != nil && res.Summary != nil {
				if err := renderResult(cmd, res); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if !res.Summary.Succeeded() {
				return fmt.Errorf("%d asset operations failed", len(res.Summary.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&spaceID, "space-id", "", "Genie space id to mine")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Target catalog for generated functions")
	cmd.Flags().StringVar(&schema, "schema", "", "Target schema for generated functions")
	cmd.Flags().StringVar(&warehouseID, "warehouse-id", "", "SQL warehouse for function DDL (omit to skip function creation)")
	cmd.Flags().StringVar(&model, "model", "", "Completion model for complexity classification")
	cmd.Flags().Var(&threshold, "threshold", "Minimum complexity tier to materialize (SIMPLE, MODERATE, COMPLEX)")
	cmd.Flags().IntVar(&maxConversations, "max-conversations", 0, "Cap on conversations to process (0 = no cap)")
	cmd.Flags().BoolVar(&includeAllUsers, "include-all-users", false, "Mine conversations from all space users, not just the caller")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only; mutate nothing")
	cmd.Flags().BoolVar(&force, "force", false, "Replace assets that already exist")
	cmd.Flags().BoolVar(&sqlInstructions, "sql-instructions", true, "Curate queries as space example instructions")
	cmd.Flags().BoolVar(&ucFunctions, "uc-functions", true, "Create Unity Catalog table functions")
	cmd.Flags().BoolVar(&registerFunctions, "register-functions", true, "Register created functions with the space")

	return cmd
}
