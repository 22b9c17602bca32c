/**
 * Lab Report Worker - Main Entry Point
 *
 * Reconstructs the layout of OCR'd lab report images and extracts one
 * record per test: name, value, unit, reference range, out-of-range flag.
 *
 * Modes:
 * - --image <path>   process one file and print the JSON envelope
 * - --mode=server    HTTP API, plus the Asynq consumer when the queue is enabled
 * - --mode=stdio     MCP tool server on stdin/stdout
 *
 * OCR needs Tesseract: build with -tags ocr.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/labreport-worker/internal/config"
	"github.com/adverant/nexus/labreport-worker/internal/labreport"
	"github.com/adverant/nexus/labreport-worker/internal/logging"
	"github.com/adverant/nexus/labreport-worker/internal/mcp"
	"github.com/adverant/nexus/labreport-worker/internal/ocr"
	"github.com/adverant/nexus/labreport-worker/internal/processor"
	"github.com/adverant/nexus/labreport-worker/internal/queue"
	"github.com/adverant/nexus/labreport-worker/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// stdout belongs to the MCP protocol in stdio mode and to the result
	// envelope in CLI mode
	var logOut io.Writer = os.Stdout
	if cfg.IsStdioMode() || cfg.ImagePath != "" {
		logOut = os.Stderr
	}
	logger := logging.NewLoggerWithOutput("worker", logging.ParseLevel(cfg.LogLevel), logOut)

	proc, err := newProcessor(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize lab report processor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.ImagePath != "":
		code := runCLI(ctx, cfg, proc)
		stop()
		os.Exit(code)
	case cfg.IsStdioMode():
		err = runStdio(ctx, cfg, proc, logger)
	default:
		err = runServer(ctx, cfg, proc, logger)
	}

	if err != nil {
		log.Fatalf("Worker stopped with error: %v", err)
	}
	logger.Info("Shutdown complete")
}

func newProcessor(cfg *config.Config, logger *logging.Logger) (*processor.LabReportProcessor, error) {
	engine, err := ocr.NewTesseract(ocr.TesseractConfig{
		Language:      cfg.OCRLanguage,
		WordGapFactor: cfg.WordGapFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}

	return processor.NewLabReportProcessor(&processor.ProcessorConfig{
		Engine: engine,
		Options: labreport.Options{
			RowThreshold:       cfg.RowThreshold,
			ReferenceLookahead: cfg.ReferenceLookahead,
		},
		Preprocess:  ocr.DefaultPreprocessConfig(),
		MaxFileSize: cfg.MaxFileSize,
		Timeout:     time.Duration(cfg.ProcessingTimeout) * time.Millisecond,
		Logger:      logger.Named("processor"),
	})
}

// runCLI processes one file and prints the envelope, returning the exit code
func runCLI(ctx context.Context, cfg *config.Config, proc processor.Processor) int {
	var resp *processor.Response
	result, err := processor.ProcessFile(ctx, proc, cfg.ImagePath, cfg.MaxFileSize)
	if err != nil {
		resp = processor.ErrorEnvelope(err)
	} else {
		resp = processor.Envelope(result.Tests)
	}

	out, merr := json.MarshalIndent(resp, "", "  ")
	if merr != nil {
		log.Printf("Failed to encode result: %v", merr)
		return 1
	}
	fmt.Println(string(out))

	if err != nil {
		return 1
	}
	return 0
}

func runStdio(ctx context.Context, cfg *config.Config, proc processor.Processor, logger *logging.Logger) error {
	mcpServer, err := mcp.NewServer(cfg, proc, logger.Named("mcp"))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return mcpServer.Run(ctx)
}

func runServer(ctx context.Context, cfg *config.Config, proc processor.Processor, logger *logging.Logger) error {
	serverCfg := &server.Config{
		Addr:        cfg.Addr(),
		Processor:   proc,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      logger.Named("http"),
	}

	var consumer *queue.Consumer
	if cfg.QueueEnabled {
		logger.Info("Connecting to Redis queue", "queue", cfg.QueueName)

		redisOpt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient := redis.NewClient(redisOpt)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}

		status, err := queue.NewRedisStatusStore(redisClient, cfg.QueueName, logger.Named("status"))
		if err != nil {
			return err
		}

		asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		asynqClient := asynq.NewClient(asynqOpt)
		defer asynqClient.Close()

		producer, err := queue.NewProducer(&queue.ProducerConfig{
			Enqueuer:          asynqClient,
			QueueName:         cfg.QueueName,
			Status:            status,
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
			Logger:            logger.Named("producer"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize queue producer: %w", err)
		}

		consumer, err = queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:          cfg.RedisURL,
			QueueName:         cfg.QueueName,
			Concurrency:       cfg.WorkerConcurrency,
			Processor:         proc,
			Status:            status,
			ProcessingTimeout: int64(cfg.ProcessingTimeout),
			Logger:            logger.Named("consumer"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize queue consumer: %w", err)
		}

		if err := consumer.Start(ctx); err != nil {
			return err
		}

		serverCfg.Jobs = producer
		serverCfg.Status = status
	}

	httpServer, err := server.New(serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Start()
	}()

	logger.Info("Lab report worker is ready",
		"addr", cfg.Addr(),
		"queue_enabled", cfg.QueueEnabled,
		"workers", cfg.WorkerConcurrency,
		"row_threshold", cfg.RowThreshold,
		"ocr_language", cfg.OCRLanguage)

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, initiating graceful shutdown")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}

	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping queue consumer", "error", err)
		}
	}

	return nil
}
