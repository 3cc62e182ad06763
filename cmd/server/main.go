package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emmett/hark/internal/config"
	"github.com/emmett/hark/internal/logging"
	"github.com/emmett/hark/internal/models"
	"github.com/emmett/hark/internal/server/ws"
	"github.com/emmett/hark/internal/stt"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file (default: ~/.harkrc or /etc/hark/config.yaml)")
	host          = flag.String("host", "", "Listen host (overrides config)")
	port          = flag.Int("port", 0, "Listen port (overrides config)")
	modelName     = flag.String("model", "", "Vosk model name (overrides config)")
	autoDownload  = flag.Bool("auto-download", false, "Download the model automatically if not found")
	downloadModel = flag.String("download-model", "", "Download a specific model by name and exit")
	listModels    = flag.Bool("list-models", false, "List all available models for download")
	useMock       = flag.Bool("mock", false, "Use the mock recognition engine (no model required)")
	showVersion   = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Hark Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *listModels {
		printModelCatalog()
		return
	}

	if *downloadModel != "" {
		if err := download(*downloadModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlagOverrides(cfg)

	logger := logging.InitLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	log := logging.NewComponentLogger(logger, "server")

	log.Info("starting", "version", Version, "commit", GitCommit)

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	server := ws.NewServer(ws.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, engine, logging.NewComponentLogger(logger, "ws"))

	// Shut down cleanly on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			log.Warn("shutdown failed", "error", err)
		}
	}()

	return server.Start()
}

// buildEngine loads the model and initializes the recognition engine. The
// model is loaded once, before the listener accepts any connection.
func buildEngine(cfg *config.Config) (stt.Engine, error) {
	sttConfig := stt.Config{
		SampleRate: cfg.Model.SampleRate,
	}

	if *useMock {
		engine := stt.NewMockEngine()
		if err := engine.Initialize(sttConfig); err != nil {
			return nil, fmt.Errorf("failed to initialize mock engine: %w", err)
		}
		return engine, nil
	}

	name := cfg.Model.Name
	if name == "" {
		var err error
		name, err = models.GetDefaultModel()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default model: %w", err)
		}
	}

	modelPath, err := models.EnsureModel(name, cfg.Model.AutoDownload, printProgress)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Using model: %s\n", name)

	sttConfig.ModelPath = modelPath
	engine := stt.NewVoskEngine()
	if err := engine.Initialize(sttConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize STT engine: %w", err)
	}
	return engine, nil
}

func applyFlagOverrides(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["host"] {
		cfg.Server.Host = *host
	}
	if flagsSet["port"] {
		cfg.Server.Port = *port
	}
	if flagsSet["model"] {
		cfg.Model.Name = *modelName
	}
	if flagsSet["auto-download"] {
		cfg.Model.AutoDownload = *autoDownload
	}
}

func printModelCatalog() {
	fmt.Println("Available models for download:")
	fmt.Println()

	for i, model := range models.AvailableModels {
		fmt.Printf("%d. %s\n", i+1, model.Name)
		fmt.Printf("   Language: %s\n", model.Language)
		fmt.Printf("   Size:     %s\n", model.Size)
		fmt.Printf("   Info:     %s\n", model.Description)

		downloaded, _ := models.IsModelDownloaded(model.Name)
		if downloaded {
			fmt.Printf("   Status:   downloaded\n")
		} else {
			fmt.Printf("   Status:   not downloaded\n")
		}
		fmt.Println()
	}
}

func download(name string) error {
	downloaded, err := models.IsModelDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		fmt.Printf("Model '%s' is already downloaded.\n", name)
		return nil
	}

	if err := models.DownloadModel(name, printProgress); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}
	fmt.Printf("\nModel '%s' downloaded successfully.\n", name)
	return nil
}

func printProgress(downloaded, total int64) {
	if total <= 0 {
		return
	}
	percent := float64(downloaded) / float64(total) * 100
	fmt.Printf("\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}
