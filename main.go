package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/platformai/qa-agent/api"
	"github.com/platformai/qa-agent/config"
	"github.com/platformai/qa-agent/database"
	"github.com/platformai/qa-agent/embeddings"
	"github.com/platformai/qa-agent/ingestion"
	"github.com/platformai/qa-agent/llm"
	"github.com/platformai/qa-agent/rag"
	"github.com/platformai/qa-agent/vector"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "import":
		importCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	port := flags.Int("port", cfg.Port, "port to listen on")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	store, svc, err := buildServices(cfg, pool, logger)
	if err != nil {
		logger.Fatalf("service setup: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.New(cfg, svc, store, logger).Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("qa-agent listening on :%d (provider=%s model=%s rag=%t)", *port, cfg.Provider, cfg.Model, cfg.RAG.Enabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

func importCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("import", flag.ExitOnError)
	url := flags.String("url", "", "URL to fetch and index")
	file := flags.String("file", "", "local markdown/text/pdf file to index")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse import flags: %v", err)
	}

	if (*url == "") == (*file == "") {
		logger.Fatalf("exactly one of -url or -file is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	store := vector.NewPostgresStore(pool, embedder)
	importer := ingestion.NewImporter(store, nil, logger)

	var count int
	if *url != "" {
		count, err = importer.ImportURL(ctx, *url)
	} else {
		count, err = importer.ImportFile(ctx, *file)
	}
	if err != nil {
		logger.Fatalf("import failed: %v", err)
	}
	logger.Printf("import complete: %d chunks", count)
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	question := flags.String("question", "", "question to ask")
	stream := flags.Bool("stream", false, "print the answer as it is generated")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	_, svc, err := buildServices(cfg, pool, logger)
	if err != nil {
		logger.Fatalf("service setup: %v", err)
	}

	q := rag.Question{Text: *question}
	if *stream {
		if _, err := svc.AskStream(ctx, q, func(chunk string) error {
			fmt.Print(chunk)
			return nil
		}); err != nil {
			logger.Fatalf("ask failed: %v", err)
		}
		fmt.Println()
		return
	}

	answer, err := svc.Ask(ctx, q)
	if err != nil {
		logger.Fatalf("ask failed: %v", err)
	}
	fmt.Println(answer.Text)
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete all indexed chunks from Postgres. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	store := vector.NewPostgresStore(pool, embedder)
	if err := store.Clear(ctx); err != nil {
		logger.Fatalf("clear vector store: %v", err)
	}
	logger.Println("vector store cleared")
}

// buildServices constructs the long-lived collaborators shared by every
// request: vector store, retriever, composer, matcher, and LLM client.
func buildServices(cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) (vector.Store, *rag.Service, error) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("llm setup: %w", err)
	}

	store := vector.NewPostgresStore(pool, embedder)
	svc := rag.NewService(
		rag.NewMatcher(cfg.RAG.ExtraKeywords...),
		rag.NewStoreRetriever(store),
		rag.NewComposer(cfg.RAG.ContextBudget),
		llmClient,
		logger,
		rag.Options{Enabled: cfg.RAG.Enabled, TopK: cfg.RAG.TopK},
	)

	return store, svc, nil
}

func printUsage() {
	fmt.Println("Usage: qa-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  import   Fetch a URL or read a local document and index it (-url | -file)")
	fmt.Println("  ask      Ask a one-shot question from the command line")
	fmt.Println("  clear    Remove all indexed chunks from the vector store")
}
