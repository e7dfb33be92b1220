package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/models"
	"pdf-rag/internal/rag"
	"pdf-rag/internal/server"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the PDF to ingest")
	query := flag.String("query", "", "Question to be answered")
	pdfID := flag.String("pdf-id", "", "Document id to ingest under or to search")
	serve := flag.Bool("serve", false, "Start the HTTP API")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk only, do not call the model or save to database")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	setLogLevel(cfg.LogLevel)

	if *filePath != "" && *query != "" {
		log.Fatal().Msg("Please provide either a document file using the -file flag or a query using the -query flag, but not both")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		if *filePath == "" {
			log.Fatal().Msg("-dry-run requires -file")
		}
		chunkFile(ctx, cfg, *filePath)
		return
	}

	if *filePath == "" && *query == "" && !*serve {
		log.Fatal().Msg("Please provide a document file using the -file flag, a query using the -query flag, or -serve")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("Error closing vector store")
		}
	}()

	client, err := llmservice.NewClient(&cfg.LLM, cfg.RAG.VisionMaxTokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	pipeline := rag.NewRAG(cfg, store, client)

	switch {
	case *serve:
		serveAPI(ctx, cfg, pipeline)
	case *filePath != "":
		ingestFile(ctx, pipeline, *filePath, *pdfID)
	case *query != "":
		ask(ctx, pipeline, *query, *pdfID)
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// openStore builds the configured vector store once for the whole process.
func openStore(ctx context.Context, cfg *config.Config) (rag.VectorStore, func() error, error) {
	vs := cfg.VectorStore
	switch vs.Backend {
	case "postgres":
		sqldb, err := db.ConnectDB(&vs)
		if err != nil {
			return nil, nil, err
		}
		store := db.NewStore(db.NewDB(sqldb, vs.Debug))
		if err := store.InitDB(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		if vs.Path != "" {
			if err := helper.CreateFolder(vs.Path); err != nil {
				return nil, nil, err
			}
		}
		m, err := chromemdb.NewVectorDBManager(vs.Path, vs.InMemory, vs.Compress, vs.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
}

func ingestFile(ctx context.Context, pipeline *rag.RAG, filePath, pdfID string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document")
	}

	summary, err := pipeline.Ingest(ctx, pdfID, data, func(done, total int) {
		log.Debug().Msgf("Progress: %d/%d pages", done, total)
	})
	if err != nil {
		var embErr *models.EmbeddingFailedError
		if errors.As(err, &embErr) {
			log.Error().Str("chunk", embErr.ChunkID).Err(embErr.Cause).Msg("Embedding failed")
		}
		log.Fatal().Err(err).Msg("Error processing PDF")
	}

	log.Info().Msg("PDF processed and indexed successfully")
	helper.PrettyPrint(summary)
}

func ask(ctx context.Context, pipeline *rag.RAG, query, pdfID string) {
	answer, err := pipeline.Ask(ctx, query, pdfID)
	if errors.Is(err, models.ErrNoDocumentsIndexed) {
		log.Warn().Msg(models.NoDocumentsMessage)
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Text)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("Confidence: %.2f\n", answer.Confidence)
	helper.PrettyPrint(answer.HighlightInfo)
}

// chunkFile prints the chunks of a PDF without touching the model or store.
func chunkFile(ctx context.Context, cfg *config.Config, filePath string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document")
	}

	pipeline := rag.NewRAG(cfg, nil, nil)
	chunks, summary, err := pipeline.Chunks(ctx, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Msg("Parsed content")
	helper.PrettyPrint(chunks)
	helper.PrettyPrint(summary)
}

func serveAPI(ctx context.Context, cfg *config.Config, pipeline *rag.RAG) {
	srv := server.NewServer(pipeline, &cfg.Server)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping server")
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
