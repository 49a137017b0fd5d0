package roast

import (
	"context"
	"fmt"
	"strings"

	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

// CannedRoaster is the keyless fallback: template output built from the
// taste data, no model call. Used when GEMINI_KEY is not configured.
type CannedRoaster struct{}

var _ Roaster = CannedRoaster{}

func NewCannedRoaster() CannedRoaster {
	return CannedRoaster{}
}

func (CannedRoaster) GenerateRoast(_ context.Context, taste spotify.TasteData) (string, error) {
	genre := "whatever that is"
	if len(taste.TopGenres) > 0 {
		genre = taste.TopGenres[0]
	}
	name := taste.DisplayName
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf(
		"%s, a playlist that leans this hard on %s isn't a personality, it's a cry for help. %s",
		name, genre, artistJab(taste),
	), nil
}

func (CannedRoaster) GenerateCompliment(_ context.Context, taste spotify.TasteData) (string, error) {
	genre := "music"
	if len(taste.TopGenres) > 0 {
		genre = taste.TopGenres[0]
	}
	return fmt.Sprintf(
		"Wow, you listen to %s! That is so brave and so unique. Millions of people agree with you!",
		genre,
	), nil
}

func artistJab(taste spotify.TasteData) string {
	if len(taste.TopArtists) == 0 {
		return "At least nobody can judge an empty library."
	}
	names := make([]string, 0, len(taste.TopArtists))
	for _, a := range taste.TopArtists {
		names = append(names, a.Name)
	}
	return "And yes, we all saw " + strings.Join(names, ", ") + " in there."
}
