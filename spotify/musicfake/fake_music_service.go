// Package musicfake provides a canned MusicService for tests and for local
// runs without Spotify API access.
package musicfake

import (
	"context"
	"errors"

	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

// FakeMusicService returns fixed taste data for any non-empty access token.
type FakeMusicService struct {
	// Err, when set, is returned instead of taste data.
	Err error
}

var _ spotify.MusicService = (*FakeMusicService)(nil)

func NewFakeMusicService() *FakeMusicService {
	return &FakeMusicService{}
}

func (f *FakeMusicService) TasteData(_ context.Context, accessToken string) (spotify.TasteData, error) {
	if f.Err != nil {
		return spotify.TasteData{}, f.Err
	}
	if accessToken == "" {
		return spotify.TasteData{}, errors.New("access token required")
	}
	return spotify.TasteData{
		DisplayName: "Mock User",
		TopTracks: []spotify.Track{
			{Name: "Mock Track One", Artists: []string{"Mock Artist A"}},
			{Name: "Another Mock Song", Artists: []string{"Mock Artist B"}},
			{Name: "Mock Pop Hit", Artists: []string{"Mock Artist A", "Mock Artist C"}},
		},
		TopArtists: []spotify.Artist{
			{Name: "Mock Artist A", Genres: []string{"mock-pop"}},
			{Name: "Mock Artist B", Genres: []string{"mock-rock", "mock-pop"}},
			{Name: "Mock Artist C", Genres: []string{"mock-jazz"}},
		},
		TopGenres: []string{"mock-pop", "mock-jazz", "mock-rock"},
		RecentlyPlayed: []spotify.Track{
			{Name: "Mock Track One", Artists: []string{"Mock Artist A"}},
			{Name: "Late Night Mock", Artists: []string{"Mock Artist C"}},
		},
	}, nil
}
