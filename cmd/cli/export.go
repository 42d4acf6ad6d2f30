package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/cml-exchange/internal/cml"
	"github.com/kosarica/cml-exchange/internal/items"
	"github.com/kosarica/cml-exchange/internal/pipeline"
	"github.com/kosarica/cml-exchange/internal/pkg/runid"
	"github.com/kosarica/cml-exchange/internal/storage"
)

var (
	exportFrom    string
	exportOrders  string
	exportOut     string
	exportNoStore bool
	exportList    bool
	exportResend  string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export orders as a CommerceML document",
	Long: `Export orders as a CommerceML order document in the configured encoding.
Orders are taken either from an existing CommerceML document (--from) or from
a JSON array of orders (--orders).

The document is stored under exports/<date>/<run id>.xml and optionally written
to --out. Orders are acknowledged only after every delivery succeeded and the
stored copy was read back intact.

Stored documents can be listed with --list and delivered again with --resend.`,
	Example: `  cml-exchange export --from ./data/orders.xml
  cml-exchange export --orders ./data/orders.json --out ./to-1c.xml
  cml-exchange export --orders ./data/orders.json --out ./to-1c.xml --no-store
  cml-exchange export --list
  cml-exchange export --resend exports/2024-03-05/exp_1a2b.xml --out ./to-1c.xml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFrom, "from", "", "CommerceML document to take orders from")
	exportCmd.Flags().StringVar(&exportOrders, "orders", "", "JSON file with an array of orders")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Also write the document to this path")
	exportCmd.Flags().BoolVar(&exportNoStore, "no-store", false, "Do not keep the document in storage (requires --out)")
	exportCmd.Flags().BoolVar(&exportList, "list", false, "List stored exports")
	exportCmd.Flags().StringVar(&exportResend, "resend", "", "Write the stored export with this key to --out")
	exportCmd.MarkFlagsMutuallyExclusive("from", "orders", "list", "resend")
	exportCmd.MarkFlagsOneRequired("from", "orders", "list", "resend")
	exportCmd.MarkFlagsMutuallyExclusive("list", "out")
	exportCmd.MarkFlagsMutuallyExclusive("no-store", "list")
	exportCmd.MarkFlagsMutuallyExclusive("no-store", "resend")
}

// exportResult describes one delivered export
type exportResult struct {
	RunID      string
	Documents  int
	Bytes      int
	StorageKey string
	Path       string
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if exportNoStore && exportOut == "" {
		return fmt.Errorf("--no-store requires --out")
	}
	if exportResend != "" && exportOut == "" {
		return fmt.Errorf("--resend requires --out")
	}

	if exportList || exportResend != "" {
		backend, err := storage.New(cfg.Storage.Type, cfg.Storage.BasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		if exportList {
			_, err := listExports(ctx, backend, cmd.OutOrStdout())
			return err
		}
		size, err := resendExport(ctx, backend, exportResend, exportOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Written: %s (%d bytes)\n", exportOut, size)
		return nil
	}

	runID := runid.New(runid.PrefixExport)
	runLogger := logger.With().Str("run_id", runID).Logger()

	store := pipeline.NewMemoryStore()
	dispatcher := pipeline.New(map[items.Kind]pipeline.Handler{items.KindOrder: store},
		pipeline.WithLogger(runLogger))

	if err := loadOrders(ctx, dispatcher, runLogger); err != nil {
		return err
	}

	var backend storage.Storage
	if !exportNoStore {
		var err error
		backend, err = storage.New(cfg.Storage.Type, cfg.Storage.BasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	writer := cml.NewWriter(dispatcher,
		cml.WithSchemaVersion(cfg.Exchange.SchemaVersion),
		cml.WithWriterNamespace(namespace()),
		cml.WithEncoding(cfg.Exchange.Encoding),
		cml.WithWriterLogger(runLogger),
	)
	result, err := exportOrderDocument(ctx, writer, backend, exportOut, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Exported %d orders (%d bytes), run %s\n", result.Documents, result.Bytes, result.RunID)
	if result.StorageKey != "" {
		fmt.Fprintf(out, "Stored: %s\n", result.StorageKey)
	}
	if result.Path != "" {
		fmt.Fprintf(out, "Written: %s\n", result.Path)
	}
	return nil
}

// loadOrders feeds the orders named by the flags into dispatcher
func loadOrders(ctx context.Context, dispatcher *pipeline.Dispatcher, logger zerolog.Logger) error {
	if exportFrom != "" {
		reader := cml.NewReader(exportFrom, dispatcher,
			cml.WithReaderNamespace(namespace()),
			cml.WithReaderLogger(logger),
			cml.WithOrderFieldsMode(cml.ParseOrderFieldsMode(cfg.Exchange.OrderFieldsMode)),
		)
		if err := reader.ImportOrders(ctx); err != nil {
			return fmt.Errorf("failed to read orders: %w", err)
		}
		return nil
	}

	orders, err := readOrdersJSON(exportOrders)
	if err != nil {
		return err
	}
	for _, order := range orders {
		dispatcher.Submit(ctx, order)
	}
	return nil
}

// readOrdersJSON reads a JSON array of orders. Keys missing from an order
// keep the NewOrder defaults.
func readOrdersJSON(path string) ([]*items.Order, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode orders from %s: %w", path, err)
	}

	orders := make([]*items.Order, 0, len(raw))
	for i, message := range raw {
		order := items.NewOrder()
		if err := json.Unmarshal(message, order); err != nil {
			return nil, fmt.Errorf("failed to decode order %d from %s: %w", i, path, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// exportOrderDocument builds the document, delivers it to storage and/or
// path, and acknowledges the orders only when every delivery succeeded
func exportOrderDocument(ctx context.Context, writer *cml.Writer, backend storage.Storage, path, runID string) (*exportResult, error) {
	result := &exportResult{RunID: runID}
	result.Documents = writer.ExportAll(ctx)

	content, err := writer.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize export: %w", err)
	}
	result.Bytes = len(content)

	if backend != nil {
		key, err := storeExport(ctx, backend, content, runID, result.Documents)
		if err != nil {
			return nil, err
		}
		result.StorageKey = key
	}

	if path != "" {
		if err := os.WriteFile(path, content, 0644); err != nil {
			return nil, fmt.Errorf("failed to write export: %w", err)
		}
		result.Path = path
	}

	writer.Finalize(ctx)
	return result, nil
}

// storeExport keeps content under a fresh export key and reads it back. An
// existing key is never overwritten; a copy that does not match content is
// removed again.
func storeExport(ctx context.Context, backend storage.Storage, content []byte, runID string, documents int) (string, error) {
	now := time.Now()
	key := storage.BuildExportKey(now, runID)

	exists, err := backend.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check export %s: %w", key, err)
	}
	if exists {
		return "", fmt.Errorf("export %s is already stored", key)
	}

	err = backend.Put(ctx, key, content, &storage.Metadata{
		ContentType: "application/xml",
		RunID:       runID,
		StoredAt:    now,
		Documents:   documents,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store export: %w", err)
	}

	info, err := backend.GetInfo(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read back export %s: %w", key, err)
	}
	if info.Size != int64(len(content)) || info.Checksum != storage.ComputeChecksum(content) {
		mismatch := fmt.Errorf("stored export %s does not match the document", key)
		if err := backend.Delete(ctx, key); err != nil {
			return "", errors.Join(mismatch, err)
		}
		return "", mismatch
	}
	return key, nil
}

// listExports prints one line per stored export and returns how many there are
func listExports(ctx context.Context, backend storage.Storage, out io.Writer) (int, error) {
	keys, err := backend.List(ctx, "exports/")
	if err != nil {
		return 0, fmt.Errorf("failed to list exports: %w", err)
	}
	if len(keys) == 0 {
		fmt.Fprintln(out, "No stored exports")
		return 0, nil
	}

	for _, key := range keys {
		info, err := backend.GetInfo(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to describe export %s: %w", key, err)
		}
		runID, documents := "-", 0
		if info.Metadata != nil {
			runID, documents = info.Metadata.RunID, info.Metadata.Documents
		}
		fmt.Fprintf(out, "%s\t%s\t%d orders\t%d bytes\t%s\n",
			key, runID, documents, info.Size, info.ModifiedAt.Format(time.DateTime))
	}
	return len(keys), nil
}

// resendExport writes a stored export to path. The orders it carries were
// acknowledged when it was first delivered, so nothing is finalized.
func resendExport(ctx context.Context, backend storage.Storage, key, path string) (int, error) {
	content, err := backend.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to load export: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(content), nil
}
