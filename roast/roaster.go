// Package roast turns a listening profile into a roast (or a backhanded
// compliment). The Gemini-backed implementation does one generateContent
// call per request; model behavior itself is the provider's business, only
// the calling contract lives here.
package roast

import (
	"context"
	"strings"

	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

type Roaster interface {
	GenerateRoast(ctx context.Context, taste spotify.TasteData) (string, error)
	GenerateCompliment(ctx context.Context, taste spotify.TasteData) (string, error)
}

// userPrompt formats the taste data for the model.
func userPrompt(taste spotify.TasteData) string {
	var tracks []string
	for _, t := range taste.TopTracks {
		tracks = append(tracks, t.Name+" by "+strings.Join(t.Artists, ", "))
	}
	var artists []string
	for _, a := range taste.TopArtists {
		artists = append(artists, a.Name+" ("+strings.Join(a.Genres, ", ")+")")
	}
	var recent []string
	for _, t := range taste.RecentlyPlayed {
		recent = append(recent, t.Name+" by "+strings.Join(t.Artists, ", "))
	}

	var b strings.Builder
	b.WriteString("Here is my Spotify data:\n")
	if len(artists) > 0 {
		b.WriteString("- Top Artists: " + strings.Join(artists, ", ") + "\n")
	}
	if len(taste.TopGenres) > 0 {
		b.WriteString("- Top Genres: " + strings.Join(taste.TopGenres, ", ") + "\n")
	}
	if len(tracks) > 0 {
		b.WriteString("- Top Tracks: " + strings.Join(tracks, "; ") + "\n")
	}
	if len(recent) > 0 {
		b.WriteString("- Recently Played: " + strings.Join(recent, "; ") + "\n")
	}
	if len(artists) == 0 && len(taste.TopGenres) == 0 && len(tracks) == 0 && len(recent) == 0 {
		b.WriteString("- No specific listening data provided.\n")
	}
	return strings.TrimSpace(b.String())
}
