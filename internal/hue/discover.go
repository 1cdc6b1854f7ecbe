package hue

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no bridge was discovered.
var ErrNotFound = errors.New("no bridge was found")

var ssdpSearch = []byte("M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"MX: 2\r\n" +
	"ST: ssdp:all\r\n\r\n")

// Discoverer finds bridges with an SSDP broadcast on the local network and
// falls back to the nupnp lookup service when nobody answers.
type Discoverer struct {
	MulticastAddr *net.UDPAddr
	Deadline      time.Duration
	HTTPClient    *http.Client

	// Remote queries the nupnp service.
	Remote func(ctx context.Context) ([]huego.Bridge, error)
}

// NewDiscoverer creates a discoverer that collects SSDP responses for up to
// deadline (default 3s).
func NewDiscoverer(deadline time.Duration) *Discoverer {
	if deadline == 0 {
		deadline = 3 * time.Second
	}
	return &Discoverer{
		MulticastAddr: &net.UDPAddr{IP: net.IPv4(239, 255, 255, 250), Port: 1900},
		Deadline:      deadline,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
		Remote:        huego.DiscoverAllContext,
	}
}

// Discover returns every bridge found, local responders first.
func (d *Discoverer) Discover(ctx context.Context) ([]Candidate, error) {
	found, err := d.discoverLocal(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("SSDP search failed")
	}
	if len(found) > 0 {
		return found, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.Info().Msg("No bridges answered the SSDP search, attempting remote API")
	return d.discoverRemote(ctx)
}

// discoverLocal sends an M-SEARCH and collects Hue bridges until the deadline.
func (d *Discoverer) discoverLocal(ctx context.Context) ([]Candidate, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(ssdpSearch, d.MulticastAddr); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(d.Deadline))
	defer cancel()
	deadline, _ := ctx.Deadline()
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	var (
		found   []Candidate
		seenLoc = make(map[string]bool)
		seenID  = make(map[string]bool)
		buf     = make([]byte, 2048)
	)
	for ctx.Err() == nil {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return found, err
		}

		loc := location(buf[:n])
		if loc == "" || seenLoc[loc] {
			continue
		}
		seenLoc[loc] = true

		c, err := d.tryLocation(ctx, loc)
		if err != nil {
			log.Debug().Err(err).Str("location", loc).Msg("Ignoring SSDP responder")
			continue
		}
		key := c.ID
		if key == "" {
			key = c.Host
		}
		if seenID[key] {
			continue
		}
		seenID[key] = true
		found = append(found, c)
	}
	return found, nil
}

// location extracts the Location header from an SSDP response datagram.
func location(datagram []byte) string {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(datagram)), nil)
	if err != nil {
		return ""
	}
	resp.Body.Close()
	return resp.Header.Get("Location")
}

// tryLocation queries the passed url to check if it is the description of a Hue
// bridge, in which case it returns information about it. Any other outcome will
// result in an error.
func (d *Discoverer) tryLocation(ctx context.Context, loc string) (Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return Candidate{}, err
	}
	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return Candidate{}, err
	}
	defer resp.Body.Close()

	var body struct {
		URL    string `xml:"URLBase"`
		Device struct {
			Description string `xml:"modelDescription"`
			Name        string `xml:"modelName"`
			ID          string `xml:"serialNumber"`
		} `xml:"device"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Candidate{}, err
	}
	if body.URL == "" ||
		!(strings.Contains(body.Device.Description, "Philips hue") ||
			strings.Contains(body.Device.Name, "Philips hue")) {
		return Candidate{}, ErrNotFound
	}

	host, err := hostFromURL(body.URL)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{ID: body.Device.ID, Host: host}, nil
}

// hostFromURL reduces a URLBase such as "http://1.2.3.4:80/" to the address
// the bridge API is reached at.
func hostFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	if u.Port() == "80" {
		return u.Hostname(), nil
	}
	return u.Host, nil
}

// discoverRemote uses the nupnp service to discover local bridges.
func (d *Discoverer) discoverRemote(ctx context.Context) ([]Candidate, error) {
	if d.Remote == nil {
		return nil, ErrNotFound
	}
	bridges, err := d.Remote(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote discovery failed: %w", err)
	}

	found := make([]Candidate, 0, len(bridges))
	for _, b := range bridges {
		if b.Host == "" {
			continue
		}
		found = append(found, Candidate{ID: b.ID, Host: b.Host})
	}
	return found, nil
}
