package hue

import (
	"sort"

	"github.com/amimof/huego"
)

// Candidate is a bridge found during discovery
type Candidate struct {
	ID   string
	Host string
}

// LightSummary is the subset of a light's description needed to pick one.
type LightSummary struct {
	ID                   int
	Name                 string
	SupportsColorEffects bool
}

// summarize converts bridge lights, ordered by id.
// A light supports color effects when its state reports a color mode.
func summarize(lights []huego.Light) []LightSummary {
	out := make([]LightSummary, 0, len(lights))
	for _, l := range lights {
		out = append(out, LightSummary{
			ID:                   l.ID,
			Name:                 l.Name,
			SupportsColorEffects: l.State != nil && l.State.ColorMode != "",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ColorLights returns the lights that support color effects, preserving order.
func ColorLights(lights []LightSummary) []LightSummary {
	colored := make([]LightSummary, 0, len(lights))
	for _, l := range lights {
		if l.SupportsColorEffects {
			colored = append(colored, l)
		}
	}
	return colored
}
