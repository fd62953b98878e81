// Package main provides the scootblog CLI: it serves the blog platform and
// runs CSV batch imports against the same store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evmedia/scootblog"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "scootblog",
	Short: "Blog platform with a public API, admin dashboard API, and CSV import",
	Long: `scootblog serves a blog content platform backed by SQLite.

Configuration comes from environment variables (and an optional .env file):
ADMIN_PASSWORD and ADMIN_SESSION_SECRET are required; see SITE_NAME,
SITE_URL, ADDR, DATABASE_PATH for the rest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := scootblog.New(scootblog.LoadConfig())
		defer app.Close()
		return app.Start()
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import blog posts from a CSV file",
	Long: `Import streams the CSV row by row and upserts each post by slug.
Rows missing a title are skipped and counted; a row whose structured-data
fields hold invalid JSON keeps the row but drops those fields. The final
report shows inserted, updated, and skipped counts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := scootblog.LoadConfig()
		log := scootblog.NewLogger(cfg)

		store, err := scootblog.NewStore(cfg.DatabasePath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		importer := scootblog.NewImporter(store, scootblog.NewNormalizer(cfg.URL, log), log)
		report, err := importer.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Imported %s: %d inserted, %d updated, %d skipped\n",
			args[0], report.Inserted, report.Updated, report.Skipped)
		for _, f := range report.Failures {
			fmt.Printf("  line %d: %s (%s)\n", f.Line, f.Reason, f.Title)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scootblog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scootblog %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, importCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
