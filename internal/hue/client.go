package hue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// http://www.developers.meethue.com/documentation/configuration-api#71_create_user
const (
	maxAppNameLength    = 20
	maxDeviceNameLength = 19
)

// EffectColorLoop makes the bridge cycle through all hues on its own.
const EffectColorLoop = "colorloop"

// ErrNoSuccess is returned when the bridge answers a state update without
// reporting any applied attribute.
var ErrNoSuccess = errors.New("bridge reported no successful update")

// Client performs the bridge operations used by colorloop.
// Every call is bounded by the configured timeout.
type Client struct {
	timeout    time.Duration
	discoverer *Discoverer
}

// NewClient creates a new Hue client
func NewClient(timeout time.Duration, discoverer *Discoverer) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if discoverer == nil {
		discoverer = NewDiscoverer(0)
	}
	return &Client{
		timeout:    timeout,
		discoverer: discoverer,
	}
}

// Discover returns the bridges found on the local network.
func (c *Client) Discover(ctx context.Context) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.discoverer.Discover(ctx)
}

// Pair registers a new device on the bridge at host and returns its username.
// The bridge's link button must have been pressed shortly before.
func (c *Client) Pair(ctx context.Context, host, appName string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	deviceType := DeviceType(appName)
	log.Debug().Str("host", host).Str("devicetype", deviceType).Msg("Registering device")

	username, err := huego.New(host, "").CreateUserContext(ctx, deviceType)
	if err != nil {
		return "", fmt.Errorf("failed to register device: %w", err)
	}
	if username == "" {
		return "", errors.New("failed to register device: bridge returned an empty username")
	}
	return username, nil
}

// Lights returns all lights known to the bridge, ordered by id.
func (c *Client) Lights(ctx context.Context, host, username string) ([]LightSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lights, err := huego.New(host, username).GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lights: %w", err)
	}

	log.Debug().Int("lights", len(lights)).Msg("Lights fetched")
	return summarize(lights), nil
}

// SetColorLoop powers the light on and starts the color loop effect.
func (c *Client) SetColorLoop(ctx context.Context, host, username string, lightID int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	state := huego.State{On: true, Effect: EffectColorLoop}

	log.Info().
		Int("light", lightID).
		Interface("state", state).
		Msg("Applying state to light")

	resp, err := huego.New(host, username).SetLightStateContext(ctx, lightID, state)
	if err != nil {
		return fmt.Errorf("failed to set state of light %d: %w", lightID, err)
	}
	if resp == nil || len(resp.Success) == 0 {
		return ErrNoSuccess
	}
	return nil
}

// DeviceType builds the "<app>#<device>" identifier sent when pairing,
// truncated to the lengths the bridge accepts.
func DeviceType(appName string) string {
	device, err := os.Hostname()
	if err != nil || device == "" {
		device = "unknown"
	}
	return fmt.Sprintf("%s#%s",
		truncate(appName, maxAppNameLength),
		truncate(device, maxDeviceNameLength))
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// linkButtonNotPressed is the bridge API error type returned when pairing
// without the link button having been pressed.
const linkButtonNotPressed = 101

// IsLinkButtonError reports whether err is the bridge refusing to pair
// because the link button was not pressed.
func IsLinkButtonError(err error) bool {
	var apiErr *huego.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == linkButtonNotPressed
	}
	return false
}
