package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/pipeline"
	"github.com/clindoc/normalizer/quality"
	"github.com/clindoc/normalizer/service"
	"github.com/clindoc/normalizer/store"
	"github.com/clindoc/normalizer/store/postgres"
	"github.com/clindoc/normalizer/stream"
	"github.com/clindoc/normalizer/terminology"
)

// documentOutput is the JSON emitted per input document.
type documentOutput struct {
	Document string                 `json:"document"`
	Source   cn.SourceType          `json:"source"`
	Sections []cn.NormalizedSection `json:"sections"`
	Quality  quality.Assessment     `json:"quality"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	log, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	defer log.Sync()

	catalogue, closeStore, err := openCatalogue(log)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []cn.Option{
		cn.WithTargetLanguage(viper.GetString("language")),
		cn.WithTargetCountry(viper.GetString("country")),
		cn.WithParallelSections(!viper.GetBool("serial")),
		cn.WithWorkerCount(viper.GetInt("workers")),
		cn.WithLogger(log),
	}
	if d := viper.GetDuration("lookup-timeout"); d > 0 {
		opts = append(opts, cn.WithLookupTimeout(d))
	}

	resolver := newResolver(catalogue, log, opts)
	manager := pipeline.NewManager(resolver)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var paths []string
	for _, arg := range args {
		paths = append(paths, expand(arg)...)
	}

	proc := stream.NewProcessor(manager)
	if n := viper.GetInt("workers"); n > 0 {
		proc = proc.WithWorkers(n)
	}

	docs := make(chan stream.Document)
	go func() {
		defer close(docs)
		for _, path := range paths {
			docs <- loadDocument(path)
		}
	}()

	failed := false
	for r := range proc.Run(ctx, docs) {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
			failed = true
			continue
		}
		if err := emit(r.Name, r.Result); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, err)
			failed = true
		}
		r.Result.Release()
	}

	if viper.GetString("output") == "summary" {
		printMetrics(resolver.Metrics().Snapshot())
	}
	if failed {
		return fmt.Errorf("some documents could not be processed")
	}
	return nil
}

// loadDocument reads one input and sniffs its format. Failures travel
// inside the Document so they are reported in input order.
func loadDocument(path string) stream.Document {
	doc := stream.Document{Name: path}

	var err error
	if path == "-" {
		doc.Name = "stdin"
		doc.Data, err = io.ReadAll(os.Stdin)
	} else {
		doc.Data, err = os.ReadFile(path)
	}
	if err != nil {
		doc.Err = err
		return doc
	}
	doc.Source, doc.Err = detectSource(doc.Data)
	return doc
}

// emit prints one processed document in the configured output format.
func emit(name string, result *cn.PipelineResult) error {
	assessment := quality.Assess(result)

	switch viper.GetString("output") {
	case "summary":
		printSummary(name, result, assessment)
		return nil
	default:
		out := documentOutput{
			Document: name,
			Source:   result.Source,
			Sections: result.Sections,
			Quality:  assessment,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

// detectSource picks the wire format: the configured one, or a sniff of
// the payload when the format is "auto".
func detectSource(data []byte) (cn.SourceType, error) {
	switch strings.ToLower(viper.GetString("format")) {
	case "cda":
		return cn.SourceCDA, nil
	case "fhir":
		return cn.SourceFHIR, nil
	case "auto", "":
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return cn.SourceFHIR, nil
		}
		if len(trimmed) > 0 && trimmed[0] == '<' {
			return cn.SourceCDA, nil
		}
		return "", fmt.Errorf("cannot detect document format")
	default:
		return "", fmt.Errorf("unknown format %q", viper.GetString("format"))
	}
}

// openCatalogue builds the terminology store from configuration:
// PostgreSQL when a DSN is given, otherwise an in-memory store
// optionally seeded from a JSON catalogue file.
func openCatalogue(log *zap.Logger) (service.CatalogueStore, func(), error) {
	if dsn := viper.GetString("postgres-dsn"); dsn != "" {
		pg, err := postgres.Open(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open terminology database: %w", err)
		}
		log.Info("using PostgreSQL terminology catalogue")
		return pg, func() { pg.Close() }, nil
	}

	mem := store.NewMemoryStore()
	if path := viper.GetString("catalogue"); path != "" {
		stats, err := mem.LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalogue: %w", err)
		}
		log.Info("loaded terminology catalogue",
			zap.String("file", path),
			zap.Int("concepts", stats.Concepts),
			zap.Int("translations", stats.Translations))
	} else {
		log.Warn("no terminology catalogue configured, every code will use fallback display")
	}
	return mem, func() {}, nil
}

func newResolver(catalogue service.CatalogueStore, log *zap.Logger, opts []cn.Option) *terminology.Resolver {
	if addr := viper.GetString("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		cache := terminology.NewRedisCache(client, "", log)
		log.Info("using Redis resolution cache", zap.String("addr", addr))
		return terminology.NewResolverWithCache(catalogue, cache, opts...)
	}
	return terminology.NewResolver(catalogue, opts...)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// expand resolves a glob pattern; a non-pattern argument passes through
// so missing files are reported per file, not swallowed.
func expand(arg string) []string {
	if arg == "-" {
		return []string{arg}
	}
	matches, err := filepath.Glob(arg)
	if err != nil || len(matches) == 0 {
		return []string{arg}
	}
	return matches
}

func printSummary(name string, result *cn.PipelineResult, a quality.Assessment) {
	fmt.Printf("== %s ==\n", name)
	fmt.Printf("Source: %s, Sections: %d, Entries: %d\n", result.Source, result.SectionsCount, result.TotalEntries)
	for _, sec := range result.Sections {
		fmt.Printf("  %-15s %3d entries\n", sec.SectionID, len(sec.Entries))
	}
	if a.Rating == quality.RatingNoCodes {
		fmt.Println("Quality: no coded concepts")
	} else {
		fmt.Printf("Quality: %.1f%% (%s), %d/%d concepts resolved\n",
			a.Score, a.Rating, a.ResolvedConcepts, a.TotalConcepts)
	}
	fmt.Println()
}

func printMetrics(s cn.MetricsSnapshot) {
	fmt.Printf("Documents: %d, Failed sections: %d, Skipped entries: %d\n",
		s.DocumentsTotal, s.SectionsFailed, s.EntriesSkipped)
	fmt.Printf("Resolutions: %d (source %d, translation %d, default %d, fallback %d)\n",
		s.ResolutionsTotal, s.SourceDisplays, s.Translations, s.DefaultDisplays, s.Fallbacks)
	fmt.Printf("Cache: %d hits, %d misses (%.1f%% hit rate)\n",
		s.CacheHits, s.CacheMisses, s.CacheHitRate*100)
	if s.StoreErrors > 0 || s.StoreTimeouts > 0 {
		fmt.Printf("Catalogue: %d errors, %d timeouts\n", s.StoreErrors, s.StoreTimeouts)
	}
}
