// Command clindoc-normalize turns clinical documents (HL7 CDA XML or
// FHIR R4 JSON) into normalized section JSON, resolving coded concepts
// against a terminology catalogue.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "clindoc-normalize [file...]",
	Short: "Normalize clinical documents into canonical sections",
	Long: `clindoc-normalize ingests clinical documents in HL7 CDA R2 XML or
FHIR R4 JSON and emits one canonical JSON structure per document:
the clinical sections (allergies, conditions, immunizations,
medications, observations, procedures) with every coded concept
resolved to localized display text, plus a resolution quality score.

Coded concepts are resolved against a terminology catalogue: either a
PostgreSQL database (--postgres-dsn) or a JSON catalogue file
(--catalogue). Codes the catalogue cannot resolve degrade to a
"Code: ... (System: ...)" fallback; the document is always produced.

Examples:
  clindoc-normalize summary.xml
  clindoc-normalize --format fhir --language de bundle.json
  cat summary.xml | clindoc-normalize -
  clindoc-normalize --postgres-dsn "host=db dbname=terminology" --redis-addr cache:6379 *.xml

Every flag can also be set through the environment with a CLINDOC_
prefix, e.g. CLINDOC_POSTGRES_DSN, CLINDOC_LANGUAGE.`,
	Args:         cobra.MinimumNArgs(1),
	RunE:         runNormalize,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()

	flags.String("format", "auto", "Input format: cda, fhir or auto (sniff per file)")
	flags.String("language", "en", "Target language for display text (ISO 639-1)")
	flags.String("country", "", "Optional country refinement for translations (ISO 3166-1)")
	flags.String("catalogue", "", "JSON terminology catalogue file")
	flags.String("postgres-dsn", "", "PostgreSQL connection string for the terminology catalogue")
	flags.String("redis-addr", "", "Redis address for the shared resolution cache")
	flags.String("output", "json", "Output format: json, summary")
	flags.Bool("serial", false, "Extract sections serially instead of in parallel")
	flags.Int("workers", 0, "Worker count for parallel extraction (0 = number of CPUs)")
	flags.Duration("lookup-timeout", 0, "Per-lookup catalogue timeout (0 = default)")
	flags.Bool("verbose", false, "Verbose logging")

	viper.SetEnvPrefix("clindoc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{
		"format", "language", "country", "catalogue", "postgres-dsn",
		"redis-addr", "output", "serial", "workers", "lookup-timeout", "verbose",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
