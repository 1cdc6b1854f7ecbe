package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/colorloop/internal/config"
	"github.com/dokzlo13/colorloop/internal/hue"
)

// AppName identifies colorloop when pairing with a bridge.
const AppName = "colorloop"

var (
	// ErrNoBridges is returned when discovery finds no bridge.
	ErrNoBridges = errors.New("no bridges found")
	// ErrPairingFailed is returned when the bridge refuses to register a device.
	ErrPairingFailed = errors.New("pairing failed")
)

// Bridge is the set of bridge operations the workflow needs.
type Bridge interface {
	Discover(ctx context.Context) ([]hue.Candidate, error)
	Pair(ctx context.Context, host, appName string) (string, error)
	Lights(ctx context.Context, host, username string) ([]hue.LightSummary, error)
	SetColorLoop(ctx context.Context, host, username string, lightID int) error
}

// Store persists settings between runs.
type Store interface {
	Load() (config.Settings, error)
	Save(config.Settings) error
}

// App runs a single colorloop invocation.
// Messages meant for the user go to out; diagnostics go to the logger.
type App struct {
	bridge Bridge
	store  Store
	out    io.Writer
}

// New creates a new App instance.
func New(bridge Bridge, store Store, out io.Writer) *App {
	return &App{
		bridge: bridge,
		store:  store,
		out:    out,
	}
}

// Run loads stored settings, layers env and then flags on top of them, and
// discovers, pairs, and lists or activates as needed.
//
// Only what the run learned (a discovered host, a pairing token) and the
// flag-selected light are written back; environment values are used for the
// run but never persisted. Learned values are saved as soon as they are
// known, and the result is saved once more before a normal return.
// ErrNoBridges and ErrPairingFailed end the run early, after the user has
// been told what went wrong.
func (a *App) Run(ctx context.Context, env, flags config.Settings) error {
	stored, err := a.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	s := config.Merge(stored, env, flags)
	persist := config.Merge(stored, flags)

	log.Debug().
		Str("host", s.Host).
		Bool("paired", s.Username != "").
		Str("light", s.Light.String()).
		Msg("Settings resolved")

	if s.Host == "" {
		host, err := a.discover(ctx)
		if err != nil {
			return err
		}
		s.Host = host
		persist.Host = host
		if err := a.store.Save(persist); err != nil {
			return err
		}
		stored = persist
	}

	if s.Username == "" {
		username, err := a.pair(ctx, s.Host)
		if err != nil {
			return err
		}
		s.Username = username
		persist.Username = username
		if err := a.store.Save(persist); err != nil {
			return err
		}
		stored = persist
		fmt.Fprintf(a.out, "A new device has been registered on the bridge with id %s and cached locally for future uses.\n", username)
	}

	var stepErr error
	if s.Light == "" {
		stepErr = a.listLights(ctx, s)
	} else {
		a.activate(ctx, s)
	}

	if persist != stored {
		if err := a.store.Save(persist); err != nil {
			return err
		}
	}
	return stepErr
}

func (a *App) discover(ctx context.Context) (string, error) {
	bridges, err := a.bridge.Discover(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Bridge discovery failed")
		fmt.Fprintln(a.out, "Cannot find any Hue bridges on your local network.")
		return "", fmt.Errorf("%w: %v", ErrNoBridges, err)
	}
	if len(bridges) == 0 {
		fmt.Fprintln(a.out, "Cannot find any Hue bridges on your local network.")
		return "", ErrNoBridges
	}

	host := bridges[0].Host
	log.Info().
		Int("found", len(bridges)).
		Str("id", bridges[0].ID).
		Str("host", host).
		Msg("Bridge discovered")
	fmt.Fprintf(a.out, "Found a bridge via upnp @ %s\n", host)
	return host, nil
}

func (a *App) pair(ctx context.Context, host string) (string, error) {
	username, err := a.bridge.Pair(ctx, host, AppName)
	if err != nil {
		log.Warn().
			Err(err).
			Bool("link_button", hue.IsLinkButtonError(err)).
			Str("host", host).
			Msg("Device registration rejected")
		fmt.Fprintln(a.out, "An error occurred while trying to register a new device. Did you press the link button on your Hue bridge?")
		return "", fmt.Errorf("%w: %v", ErrPairingFailed, err)
	}
	return username, nil
}

func (a *App) listLights(ctx context.Context, s config.Settings) error {
	lights, err := a.bridge.Lights(ctx, s.Host, s.Username)
	if err != nil {
		return err
	}

	colored := hue.ColorLights(lights)
	ids := make([]string, 0, len(colored))
	for _, l := range colored {
		ids = append(ids, fmt.Sprintf("%d (%s)", l.ID, l.Name))
	}

	fmt.Fprintln(a.out, "Specify the light to set in colorloop with the --light [id] argument. I will remember it next time.")
	fmt.Fprintf(a.out, "Available lights with colorloop mode have the following ids: %s\n", strings.Join(ids, ", "))
	return nil
}

// activate reports failures to the user instead of returning them.
func (a *App) activate(ctx context.Context, s config.Settings) {
	id, err := a.resolveLight(ctx, s)
	if err == nil {
		err = a.bridge.SetColorLoop(ctx, s.Host, s.Username, id)
	}
	if err != nil {
		log.Warn().Err(err).Str("light", s.Light.String()).Msg("Failed to enable colorloop")
		fmt.Fprintln(a.out, "An API error occurred. Light may not be color-enabled.")
		return
	}
	fmt.Fprintln(a.out, "Colorloop mode enabled!")
}

// resolveLight returns the bridge id for s.Light, looking the light up by
// name when the value is not numeric.
func (a *App) resolveLight(ctx context.Context, s config.Settings) (int, error) {
	if id, ok := s.Light.Int(); ok {
		return id, nil
	}

	lights, err := a.bridge.Lights(ctx, s.Host, s.Username)
	if err != nil {
		return 0, err
	}
	for _, l := range lights {
		if strings.EqualFold(l.Name, s.Light.String()) {
			log.Debug().Str("name", l.Name).Int("id", l.ID).Msg("Light resolved by name")
			return l.ID, nil
		}
	}
	return 0, fmt.Errorf("light '%s' not found", s.Light)
}
