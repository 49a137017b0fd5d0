package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

const (
	WebAPIBaseURL = "https://api.spotify.com/v1"

	defaultAPITimeout = 15 * time.Second
	defaultItemLimit  = 20
	topGenreCount     = 5
)

// MusicService produces the compact listening profile the roaster consumes.
type MusicService interface {
	TasteData(ctx context.Context, accessToken string) (TasteData, error)
}

// TasteData is the analysis input: just enough of the user's listening
// history to prompt with, nothing more.
type TasteData struct {
	DisplayName    string
	TopTracks      []Track
	TopArtists     []Artist
	TopGenres      []string
	RecentlyPlayed []Track
}

type Track struct {
	Name    string
	Artists []string
}

type Artist struct {
	Name   string
	Genres []string
}

// WebAPIClient fetches listening data from the Spotify Web API with a bearer
// access token. Calls are plain request-response; a 401 is reported as
// unauthorized so the boundary can tear the session down.
type WebAPIClient struct {
	baseURL    string
	httpClient *http.Client
	itemLimit  int
}

var _ MusicService = (*WebAPIClient)(nil)

type WebAPIOption func(*WebAPIClient)

// WithBaseURL overrides the API base URL (for tests).
func WithBaseURL(baseURL string) WebAPIOption {
	return func(c *WebAPIClient) {
		c.baseURL = baseURL
	}
}

func NewWebAPIClient(options ...WebAPIOption) *WebAPIClient {
	c := &WebAPIClient{
		baseURL:    WebAPIBaseURL,
		httpClient: &http.Client{Timeout: defaultAPITimeout},
		itemLimit:  defaultItemLimit,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Raw API shapes. Only the fields the analysis needs are decoded.
type apiProfile struct {
	DisplayName string `json:"display_name"`
}

type apiTrack struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

type apiArtist struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type apiList[T any] struct {
	Items []T `json:"items"`
}

// Recently-played items wrap the track in a play record.
type apiPlayedItem struct {
	Track apiTrack `json:"track"`
}

// TasteData fetches profile, top tracks, top artists, and recently played
// tracks in parallel and folds them into the analysis input. Individual
// fetch failures degrade to an empty section, except a 401, which aborts
// the whole call: the token is dead and no amount of partial data helps.
func (c *WebAPIClient) TasteData(ctx context.Context, accessToken string) (TasteData, error) {
	var (
		profile apiProfile
		tracks  apiList[apiTrack]
		artists apiList[apiArtist]
		played  apiList[apiPlayedItem]
	)

	topParams := url.Values{
		"limit":      {fmt.Sprint(c.itemLimit)},
		"time_range": {"medium_term"},
	}
	playedParams := url.Values{
		"limit": {fmt.Sprint(c.itemLimit)},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.partial(gctx, "/me", accessToken, &profile)
	})
	g.Go(func() error {
		return c.partial(gctx, "/me/top/tracks?"+topParams.Encode(), accessToken, &tracks)
	})
	g.Go(func() error {
		return c.partial(gctx, "/me/top/artists?"+topParams.Encode(), accessToken, &artists)
	})
	g.Go(func() error {
		return c.partial(gctx, "/me/player/recently-played?"+playedParams.Encode(), accessToken, &played)
	})
	if err := g.Wait(); err != nil {
		return TasteData{}, err
	}

	taste := TasteData{DisplayName: profile.DisplayName}
	for _, t := range tracks.Items {
		taste.TopTracks = append(taste.TopTracks, toTrack(t))
	}
	for _, a := range artists.Items {
		taste.TopArtists = append(taste.TopArtists, Artist{Name: a.Name, Genres: a.Genres})
	}
	for _, p := range played.Items {
		taste.RecentlyPlayed = append(taste.RecentlyPlayed, toTrack(p.Track))
	}
	taste.TopGenres = topGenres(taste.TopArtists, topGenreCount)

	return taste, nil
}

func toTrack(t apiTrack) Track {
	track := Track{Name: t.Name}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	return track
}

// partial runs one fetch, treating everything except a 401 as a degraded
// (empty) section rather than a failure.
func (c *WebAPIClient) partial(ctx context.Context, path, accessToken string, out any) error {
	if err := c.getJSON(ctx, path, accessToken, out); err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return err
		}
		log.Warn().Err(err).Str("path", path).Msg("spotify fetch degraded")
	}
	return nil
}

func (c *WebAPIClient) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.Wrapf(err, "spotify request %s", path)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify get %s: %w: %w", path, apperrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("spotify get %s: %w", path, apperrors.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("spotify get %s: %w: status %d", path, apperrors.ErrTransient, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(err, "spotify decode %s", path)
	}
	return nil
}

// topGenres ranks genres by how many top artists carry them. Ties break
// alphabetically so the result is stable.
func topGenres(artists []Artist, n int) []string {
	counts := make(map[string]int)
	for _, a := range artists {
		for _, g := range a.Genres {
			counts[g]++
		}
	}

	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})

	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}
