package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropmap_service/internal/api"
	"cropmap_service/internal/config"
	"cropmap_service/internal/core"
	"cropmap_service/internal/dataset"
	"cropmap_service/internal/domain/model"
	"cropmap_service/internal/domain/repository"
	"cropmap_service/internal/infrastructure/httpsource"
	"cropmap_service/internal/render"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cropmap",
	Short: "Crop production map server",
	Long:  `Loads the crop production dataset once and serves interactive heatmaps and marker maps of it.`,
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the dataset and start the HTTP server",
	RunE:  runServe,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the dataset into Postgres",
	Long:  `Loads the dataset from the configured url or file and replaces the crop_production snapshot in DATABASE_URL.`,
	RunE:  runImport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides "+config.ConfigPathEnv+")")
	rootCmd.AddCommand(serveCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	data, err := loadDataset(loadCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Dataset ready: %d records, %d crops", data.Len(), len(data.Crops()))

	var locator core.DistrictLocator
	if cfg.LocatorEnabled() {
		locator = repository.NewOverpassRepository(cfg.OverpassURL, cfg.OverpassTimeout)
		log.Printf("District locator enabled: %s", cfg.OverpassURL)
	}

	service := core.NewAnalysisService(data, core.Sampler{Fraction: cfg.SampleFraction, Seed: cfg.SampleSeed}, locator)
	if locator != nil {
		go warmDistricts(service)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return err
	}
	viewport := render.Viewport{
		Center: model.Coordinate{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon},
		Zoom:   cfg.MapZoom,
	}
	handler := api.NewHandler(service, renderer, viewport, cfg.PageCacheTTL)

	srv := &http.Server{
		Handler:           api.NewRouter(handler, cfg.AllowedOrigins),
		Addr:              ":" + cfg.Port,
		WriteTimeout:      60 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("Shutdown signal received")
	case err := <-serverErrors:
		log.Printf("Server error received: %v", err)
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server shutdown completed")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatasetSource == config.SourcePostgres {
		return errors.New("import reads from a url or file source, not postgres")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("import requires DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
	defer cancel()

	data, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	var recorder repository.SnapshotRecorder = repository.NewPostgresSnapshotRecorder(repo.DB)
	if err := importSnapshot(ctx, recorder, data.Records()); err != nil {
		return err
	}
	log.Printf("Imported %d records into %s", data.Len(), repository.ProductionTable)
	return nil
}

func importSnapshot(ctx context.Context, recorder repository.SnapshotRecorder, records []model.Record) error {
	if err := recorder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare snapshot table: %w", err)
	}
	if err := recorder.SaveRecords(ctx, records); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// warmDistricts resolves the sampled districts once at start-up so the
// locator cache already holds them when /crop_analysis is first served.
func warmDistricts(service *core.AnalysisService) {
	start := time.Now()
	districts, complete := service.CropAnalysis(context.Background())
	log.Printf("District locations warmed: %d districts, complete=%t, %v",
		len(districts), complete, time.Since(start).Round(time.Millisecond))
}

func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeSource()
	return source.Load(ctx)
}

// openSource picks the dataset source named by the config. The returned
// func releases whatever the source holds open.
func openSource(ctx context.Context, cfg *config.Config) (core.DatasetSource, func(), error) {
	switch cfg.DatasetSource {
	case config.SourceFile:
		return dataset.FileSource{Path: cfg.DatasetFile}, func() {}, nil
	case config.SourcePostgres:
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	default:
		return httpsource.NewSource(cfg.DatasetURL, cfg.FetchTimeout), func() {}, nil
	}
}
