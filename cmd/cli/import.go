package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/cml-exchange/config"
	"github.com/kosarica/cml-exchange/internal/cml"
	"github.com/kosarica/cml-exchange/internal/items"
	"github.com/kosarica/cml-exchange/internal/pipeline"
	"github.com/kosarica/cml-exchange/internal/pkg/runid"
	"github.com/kosarica/cml-exchange/internal/report"
	"github.com/kosarica/cml-exchange/internal/storage"
)

var (
	importParallel    int
	importOutput      string
	importReport      string
	importArchive     bool
	importContentType string
	importUploadRoot  string
	importUnits       bool
	importOrderFields string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import CommerceML documents",
	Long: `Import one or more CommerceML documents. Every document goes through the
classifier, catalog, offers and orders phases; the entities found are collected
in memory and summarized per kind.

A document that is missing or not well-formed fails on its own; the other
documents are still imported.`,
	Example: `  cml-exchange import ./data/import.xml
  cml-exchange import ./data/import.xml ./data/offers.xml --parallel 2 --output json
  cml-exchange import ./data/orders.xml --report orders.xlsx --archive`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().IntVar(&importParallel, "parallel", 1, "Number of documents imported concurrently")
	importCmd.Flags().StringVar(&importOutput, "output", "table", "Output format: table or json")
	importCmd.Flags().StringVar(&importReport, "report", "", "Write an Excel report of the imported entities to this path")
	importCmd.Flags().BoolVar(&importArchive, "archive", false, "Copy each imported document into storage under its upload route")
	importCmd.Flags().StringVar(&importContentType, "content-type", "", "Content type used to route archived documents (default: from the file extension)")
	importCmd.Flags().StringVar(&importUploadRoot, "upload-root", "", "Directory product images are resolved against (default: exchange.upload_root)")
	importCmd.Flags().BoolVar(&importUnits, "dispatch-units", false, "Also dispatch units of measurement")
	importCmd.Flags().StringVar(&importOrderFields, "order-fields", "", "Order additional fields mode: per-order or per-item")
}

// importResult is the outcome of one document
type importResult struct {
	Path       string      `json:"path"`
	RunID      string      `json:"runId"`
	Summary    cml.Summary `json:"summary"`
	ArchiveKey string      `json:"archiveKey,omitempty"`
	Error      string      `json:"error,omitempty"`
	Duration   string      `json:"duration"`
}

// importJob holds everything one import run shares between documents
type importJob struct {
	exchange    config.ExchangeConfig
	uploads     config.UploadsConfig
	contentType string
	namespace   string
	dispatcher  *pipeline.Dispatcher
	archive     storage.Storage
	logger      zerolog.Logger
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exchange := cfg.Exchange
	if importUploadRoot != "" {
		exchange.UploadRoot = importUploadRoot
	}
	if cmd.Flags().Changed("dispatch-units") {
		exchange.DispatchUnits = importUnits
	}
	if importOrderFields != "" {
		exchange.OrderFieldsMode = importOrderFields
	}

	handlers, stores := pipeline.MemoryHandlers(items.Kinds...)
	job := &importJob{
		exchange:    exchange,
		uploads:     cfg.Uploads,
		contentType: importContentType,
		namespace:   namespace(),
		dispatcher:  pipeline.New(handlers, pipeline.WithLogger(*logger)),
		logger:      *logger,
	}
	if importArchive {
		backend, err := storage.New(cfg.Storage.Type, cfg.Storage.BasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		job.archive = backend
	}

	results := job.importFiles(ctx, args, importParallel)

	if importReport != "" {
		if err := writeReport(importReport, stores); err != nil {
			return err
		}
		logger.Info().Str("path", importReport).Msg("Report written")
	}

	switch strings.ToLower(importOutput) {
	case "json":
		if err := outputImportJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	case "table":
		outputImportTable(cmd.OutOrStdout(), results)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", importOutput)
	}

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d of %d imports failed", failed, len(results))}
	}
	return nil
}

// importFiles imports every path, at most parallel at a time. Results keep
// the order of paths. A failing document never stops the others.
func (j *importJob) importFiles(ctx context.Context, paths []string, parallel int) []importResult {
	results := make([]importResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = j.importFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (j *importJob) importFile(ctx context.Context, path string) importResult {
	started := time.Now()
	result := importResult{Path: path, RunID: runid.New(runid.PrefixImport)}
	logger := j.logger.With().Str("run_id", result.RunID).Logger()

	reader := cml.NewReader(path, j.dispatcher,
		cml.WithUploadRoot(j.exchange.UploadRoot),
		cml.WithReaderNamespace(j.namespace),
		cml.WithReaderLogger(logger),
		cml.WithUnitDispatch(j.exchange.DispatchUnits),
		cml.WithOrderFieldsMode(cml.ParseOrderFieldsMode(j.exchange.OrderFieldsMode)),
	)

	summary, err := reader.ImportAll(ctx)
	result.Summary = summary
	result.Duration = time.Since(started).Round(time.Millisecond).String()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if j.archive != nil {
		key, err := j.archiveFile(ctx, path, result.RunID)
		if err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Archiving failed")
		} else {
			result.ArchiveKey = key
		}
	}

	if j.exchange.DeleteAfterImport {
		if err := os.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to delete imported file")
		}
	}
	return result
}

// archiveFile stores the source document under the upload route of its content type
func (j *importJob) archiveFile(ctx context.Context, path, runID string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	contentType := j.contentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}
	route := j.uploads.Route(contentType)

	now := time.Now()
	key := storage.BuildUploadKey(route.Dir, now, runID, filepath.Base(path))
	err = j.archive.Put(ctx, key, content, &storage.Metadata{
		ContentType:  route.ContentType,
		OriginalName: filepath.Base(path),
		RunID:        runID,
		StoredAt:     now,
		Custom:       map[string]string{"sha256": storage.ComputeChecksum(content)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return key, nil
}

func writeReport(path string, stores map[items.Kind]*pipeline.MemoryStore) error {
	entities := make(map[items.Kind][]items.Entity, len(stores))
	for kind, store := range stores {
		entities[kind] = store.Items()
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(file, entities); err != nil {
		file.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}

func outputImportTable(out io.Writer, results []importResult) {
	totals := make(cml.Summary)
	for _, result := range results {
		fmt.Fprintf(out, "\nImport Results for %s (%s)\n", result.Path, result.RunID)
		fmt.Fprintln(out, strings.Repeat("-", 60))
		if result.Error != "" {
			fmt.Fprintf(out, "Failed: %s\n", result.Error)
			continue
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Kind\tCount\n")
		fmt.Fprintf(w, "----\t-----\n")
		for _, kind := range items.Kinds {
			if n := result.Summary[kind]; n > 0 {
				fmt.Fprintf(w, "%s\t%d\n", kind, n)
				totals[kind] += n
			}
		}
		fmt.Fprintf(w, "Total\t%d\n", result.Summary.Total())
		fmt.Fprintf(w, "Duration\t%s\n", result.Duration)
		if result.ArchiveKey != "" {
			fmt.Fprintf(w, "Archived\t%s\n", result.ArchiveKey)
		}
		w.Flush()
	}

	if len(results) > 1 {
		fmt.Fprintf(out, "\nAll documents: %d entities\n", totals.Total())
	}
}

func outputImportJSON(out io.Writer, results []importResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
