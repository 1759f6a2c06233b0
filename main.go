package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fabfab/asset-query/answer"
	"github.com/fabfab/asset-query/api"
	"github.com/fabfab/asset-query/config"
	"github.com/fabfab/asset-query/engine"
	"github.com/fabfab/asset-query/llm"
	"github.com/fabfab/asset-query/prompt"
	"github.com/fabfab/asset-query/retrieve"
	"github.com/fabfab/asset-query/store"
)

const version = "0.1.0"

var errQueryFailed = errors.New("query failed")

func main() {
	if err := rootCmd().Execute(); err != nil {
		// A failed query already printed its result; everything else is a
		// startup or usage problem worth reporting here.
		if !errors.Is(err, errQueryFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "asset-query",
		Short:         "Answer questions about an asset register, grounded in its records and standards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(queryCmd(), serveCmd(), versionCmd())
	return root
}

func queryCmd() *cobra.Command {
	var (
		question    string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single question or an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			eng, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if interactive {
				runInteractive(ctx, eng)
				return nil
			}

			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("--question is required unless --interactive is set")
			}

			result, _ := eng.Ask(ctx, question, nil)
			printResult(result)
			if result.Status == answer.StatusFailure {
				return errQueryFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "question to answer")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "start an interactive session")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			eng, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := &http.Server{Addr: addr, Handler: api.New(eng, logger.With("component", "api"))}
			go func() {
				<-ctx.Done()
				_ = srv.Shutdown(context.Background())
			}()

			logger.Info("serving query API", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("asset-query", version)
		},
	}
}

func setup() (config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level, ReportTimestamp: true})
	return cfg, logger, nil
}

// buildEngine wires the full pipeline: stores, retriever, assembler and the
// retrying completion client. Store load failures abort before any query.
func buildEngine(cfg config.Config, logger *log.Logger) (*engine.Engine, error) {
	assets, err := store.LoadAssets(cfg.AssetIndexPath)
	if err != nil {
		return nil, err
	}
	know, err := store.LoadKnowledge(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("stores loaded", "assets", assets.Len(), "sections", know.Len())

	retriever := retrieve.New(assets, know, retrieve.Options{
		MaxAssets:    cfg.MaxAssets,
		MaxSections:  cfg.MaxSections,
		TermWeight:   cfg.TermWeight,
		PhraseWeight: cfg.PhraseWeight,
	}, logger.With("component", "retriever"))

	var counter prompt.Counter = prompt.RuneCounter{}
	if cfg.ContextBudget == config.BudgetTokens {
		tc, err := prompt.NewTokenCounter(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("token counter: %w", err)
		}
		counter = tc
	}
	assembler := prompt.NewAssembler(cfg.Persona, cfg.MaxContextSize, counter)

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	client = llm.NewRetryingClient(client, llm.RetryPolicy{MaxRetries: cfg.MaxRetries}, logger.With("component", "llm"))

	return engine.New(retriever, assembler, client, engine.Options{
		Timeout:      cfg.RequestTimeout,
		HistoryLimit: cfg.HistoryLimit,
	}, logger.With("component", "engine")), nil
}

// runInteractive loops until EOF or an exit command. A failed query prints
// its failure and the session continues.
func runInteractive(ctx context.Context, eng *engine.Engine) {
	fmt.Println("Ask a question about the asset register (type 'exit' to quit).")

	scanner := bufio.NewScanner(os.Stdin)
	var history []engine.Turn
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		if ctx.Err() != nil {
			return
		}

		var result answer.QueryResult
		result, history = eng.Ask(ctx, line, history)
		printResult(result)
		fmt.Println()
	}
}

func printResult(result answer.QueryResult) {
	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, c := range result.Citations {
			fmt.Printf("%d. %s\n", i+1, c)
		}
	}
}
