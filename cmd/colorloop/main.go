package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/colorloop/internal/app"
	"github.com/dokzlo13/colorloop/internal/config"
	"github.com/dokzlo13/colorloop/internal/hue"
)

var (
	cfg   config.Config
	light string
)

var rootCmd = &cobra.Command{
	Use:   "colorloop --light [id]",
	Short: "Set a Hue light in color loop mode",
	Long: `colorloop finds the Hue bridge on your network, registers itself with it
and puts a light into color loop mode.

Run it once without --light to list the lights that support the effect.
The bridge address, the registration token and the chosen light are cached
in ~/.colorloop for future runs.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE:          runColorloop,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVarP(&light, "light", "l", "", "the light to set in color loop mode")
	flags.StringVarP(&cfg.SettingsPath, "config", "c", "", "path to the settings file (default ~/.colorloop)")
	flags.StringVar(&cfg.EnvFile, "env-file", "", "dotenv file providing HOST, USERNAME and LIGHT")
	flags.DurationVar(&cfg.Hue.Timeout, "timeout", 10*time.Second, "timeout for each bridge request")
	flags.DurationVar(&cfg.Hue.DiscoveryTimeout, "discovery-timeout", 3*time.Second, "how long to wait for bridges to answer the discovery broadcast")
	flags.StringVar(&cfg.Log.Level, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Log.JSON, "log-json", false, "write logs as JSON")
	flags.BoolVar(&cfg.Log.Colors, "log-colors", true, "colorize console logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// The user has already been told what to do about these.
		if !errors.Is(err, app.ErrNoBridges) && !errors.Is(err, app.ErrPairingFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runColorloop(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	setupLogging(os.Stderr, cfg.Log)

	if err := cfg.ApplyDefaults(); err != nil {
		return fmt.Errorf("failed to locate settings file: %w", err)
	}

	lookup, err := config.EnvLookup(cfg.EnvFile)
	if err != nil {
		return err
	}

	log.Debug().Str("settings", cfg.SettingsPath).Msg("Starting colorloop")

	client := hue.NewClient(cfg.Hue.Timeout, hue.NewDiscoverer(cfg.Hue.DiscoveryTimeout))
	application := app.New(client, config.NewFile(cfg.SettingsPath), cmd.OutOrStdout())

	return application.Run(app.SignalContext(),
		config.FromEnv(lookup),
		config.Settings{Light: config.LightID(light)},
	)
}

// setupLogging points the global logger at w. Messages for the user go to
// stdout, so logs stay quiet below warn unless asked for.
func setupLogging(w io.Writer, c config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if c.JSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
			NoColor:    !c.Colors,
		})
	}

	level, err := zerolog.ParseLevel(c.GetLevel())
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", c.Level).Msg("Unknown log level, using warn")
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
}
