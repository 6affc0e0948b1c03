package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"guess-character/internal/logging"

	"github.com/rs/zerolog/log"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func main() {
	name := flag.String("name", "", "migration name, e.g. add_character_aliases")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()
	logging.Setup("info", "console")

	upPath, downPath, err := scaffold(*dir, *name, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("create migration")
	}
	log.Info().Str("up", upPath).Str("down", downPath).Msg("created migration")
}

// scaffold writes an empty up/down pair named <timestamp>_<slug>.
func scaffold(dir, name string, now time.Time) (string, string, error) {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", "", fmt.Errorf("migration name is required")
	}

	base := fmt.Sprintf("%s_%s", now.UTC().Format("20060102150405"), slug)
	upPath := filepath.Join(dir, base+".up.sql")
	downPath := filepath.Join(dir, base+".down.sql")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create migrations dir: %w", err)
	}
	if err := writeFile(upPath, "-- "+slug+" (up)\n"); err != nil {
		return "", "", fmt.Errorf("create up migration: %w", err)
	}
	if err := writeFile(downPath, "-- "+slug+" (down)\n"); err != nil {
		return "", "", fmt.Errorf("create down migration: %w", err)
	}
	return upPath, downPath, nil
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
