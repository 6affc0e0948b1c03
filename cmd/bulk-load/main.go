package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"guess-character/internal/config"
	"guess-character/internal/db"
	"guess-character/internal/images"
	"guess-character/internal/logging"
	"guess-character/internal/roster"
	"guess-character/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	file      string
	uploadDir string
	logLevel  string
	migrate   bool
}

func main() {
	_ = config.LoadDotEnv(".env")
	opts := &options{}
	if err := newCmd(opts).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "bulk-load [flags] [roster.json]",
		Short: "Import characters from a JSON roster into the database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.file = args[0]
			}
			if opts.file == "" {
				return fmt.Errorf("a roster file is required (--file or argument)")
			}
			cfg := config.Load()
			logging.Setup(opts.logLevel, cfg.LogFormat)
			if opts.uploadDir != "" {
				cfg.UploadDir = opts.uploadDir
			}

			conn, err := db.Open(db.PoolConfig{MaxOpenConns: 4, MaxIdleConns: 2})
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			if opts.migrate {
				if err := db.Migrate(conn); err != nil {
					return err
				}
			}
			importer := &roster.Importer{Store: store.NewGorm(conn), Images: images.New(cfg)}
			failed, err := run(cmd.Context(), opts.file, importer, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d entries failed", failed)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&opts.file, "file", "f", "", "roster JSON file (env: GUESS_FILE)")
	fs.StringVar(&opts.uploadDir, "upload-dir", "", "directory for stored images when S3 is not configured (env: GUESS_UPLOAD_DIR)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (env: GUESS_LOG_LEVEL)")
	fs.BoolVar(&opts.migrate, "migrate", true, "apply the schema before importing (env: GUESS_MIGRATE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

// run imports path and prints one line per entry. Local image paths are
// resolved relative to the roster file.
func run(ctx context.Context, path string, importer *roster.Importer, out io.Writer) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open roster: %w", err)
	}
	defer file.Close()

	entries, err := roster.Parse(file)
	if err != nil {
		return 0, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	importer.BaseDir = filepath.Dir(abs)

	failed := 0
	for _, result := range importer.Import(ctx, entries) {
		switch {
		case result.Status == roster.StatusError:
			failed++
			fmt.Fprintf(out, "error    %s: %s\n", result.Name, result.Error)
		case result.Created:
			fmt.Fprintf(out, "created  %s (%s)\n", result.Name, result.ID)
		default:
			fmt.Fprintf(out, "updated  %s (%s)\n", result.Name, result.ID)
		}
	}
	log.Info().Int("entries", len(entries)).Int("failed", failed).Str("file", path).Msg("roster imported")
	return failed, nil
}
