package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"guess-character/internal/domain"
	"guess-character/internal/logging"
	"guess-character/internal/session"
	"guess-character/internal/tui"
	"guess-character/pkg/client"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type options struct {
	server       string
	game         string
	sets         []string
	includeNoSet bool
	logFile      string
}

func main() {
	if err := newCmd(&options{}).Execute(); err != nil {
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
		Use:   "play",
		Short: "Play Guess the Character in the terminal, passing the device around.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := setupLogging(opts.logFile)
			if err != nil {
				return err
			}
			defer closeLog()
			return play(cmd.Context(), opts)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&opts.server, "server", "s", "http://localhost:8080", "server base URL (env: GUESS_SERVER)")
	fs.StringVarP(&opts.game, "game", "g", "", "resume an existing game instead of creating one (env: GUESS_GAME)")
	fs.StringSliceVar(&opts.sets, "sets", nil, "restrict a new game to these set ids (env: GUESS_SETS)")
	fs.BoolVar(&opts.includeNoSet, "include-no-set", true, "with --sets, also include characters without a set (env: GUESS_INCLUDE_NO_SET)")
	fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file; logging is off otherwise (env: GUESS_LOG_FILE)")

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

// gameConfig is the configuration a new game is created with.
func gameConfig(opts *options) domain.GameConfig {
	if len(opts.sets) == 0 {
		return domain.Unrestricted()
	}
	return domain.RestrictedTo(opts.sets, opts.includeNoSet)
}

func play(ctx context.Context, opts *options) error {
	c := client.New(opts.server)
	gameID := opts.game
	if gameID == "" {
		game, err := c.CreateGame(ctx, gameConfig(opts))
		if err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		gameID = game.ID
	}
	log.Info().Str("game_id", gameID).Str("server", opts.server).Msg("starting session")

	queue := session.NewQueue(c, 32)
	defer queue.Close()

	// The model re-reads the machine on every wake, so one pending
	// notification is enough and later ones can be coalesced.
	states := make(chan session.State, 1)
	machine, err := session.Start(ctx, gameID, c, session.Options{
		Recorder: queue,
		Observer: func(state session.State) {
			select {
			case states <- state:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer machine.Close()

	model := tui.New(machine, states, c.PlayURL(gameID))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func setupLogging(path string) (func(), error) {
	if path == "" {
		logging.Disable()
		return func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.SetupWriter(file, "debug", "json")
	return func() { _ = file.Close() }, nil
}
