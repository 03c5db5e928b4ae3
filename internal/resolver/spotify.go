package resolver

import (
	"context"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const spotifyDefaultThumb = "https://www.scdn.co/i/_global/twitter_card-default.jpg"

type spotifyTrack struct {
	Name      string
	Artist    string
	URL       string
	Duration  time.Duration
	Thumbnail string
}

type spotifyBackend interface {
	Track(ctx context.Context, id string) (spotifyTrack, error)
	Album(ctx context.Context, id string, limit int) ([]spotifyTrack, error)
	Playlist(ctx context.Context, id string, limit int) ([]spotifyTrack, error)
	Search(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

type spotifyClient struct {
	raw *spotify.Client
}

func newSpotifyClient(ctx context.Context, clientID, clientSecret string) *spotifyClient {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &spotifyClient{raw: spotify.New(cfg.Client(ctx), spotify.WithRetry(true))}
}

func firstArtist(as []spotify.SimpleArtist) string {
	if len(as) == 0 {
		return "Unknown Artist"
	}
	return as[0].Name
}

func firstImage(imgs []spotify.Image) string {
	if len(imgs) == 0 {
		return spotifyDefaultThumb
	}
	return imgs[0].URL
}

func fromFull(t *spotify.FullTrack) spotifyTrack {
	return spotifyTrack{
		Name:      t.Name,
		Artist:    firstArtist(t.Artists),
		URL:       t.ExternalURLs["spotify"],
		Duration:  time.Duration(t.Duration) * time.Millisecond,
		Thumbnail: firstImage(t.Album.Images),
	}
}

func (c *spotifyClient) Track(ctx context.Context, id string) (spotifyTrack, error) {
	t, err := c.raw.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return spotifyTrack{}, err
	}
	return fromFull(t), nil
}

func (c *spotifyClient) Album(ctx context.Context, id string, limit int) ([]spotifyTrack, error) {
	alb, err := c.raw.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}
	page, err := c.raw.GetAlbumTracks(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}
	thumb := firstImage(alb.Images)
	out := make([]spotifyTrack, 0, page.Total)
	add := func(items []spotify.SimpleTrack) {
		for _, t := range items {
			if limit > 0 && len(out) >= limit {
				return
			}
			out = append(out, spotifyTrack{
				Name:      t.Name,
				Artist:    firstArtist(t.Artists),
				URL:       t.ExternalURLs["spotify"],
				Duration:  time.Duration(t.Duration) * time.Millisecond,
				Thumbnail: thumb,
			})
		}
	}
	add(page.Tracks)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Tracks)
	}
	return out, nil
}

func (c *spotifyClient) Playlist(ctx context.Context, id string, limit int) ([]spotifyTrack, error) {
	page, err := c.raw.GetPlaylistItems(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}
	out := make([]spotifyTrack, 0, page.Total)
	add := func(items []spotify.PlaylistItem) {
		for _, it := range items {
			if limit > 0 && len(out) >= limit {
				return
			}
			// episodes and local files have no track
			if it.Track.Track != nil {
				out = append(out, fromFull(it.Track.Track))
			}
		}
	}
	add(page.Items)
	for page.Next != "" && (limit == 0 || len(out) < limit) {
		if err := c.raw.NextPage(ctx, page); err != nil {
			break
		}
		add(page.Items)
	}
	return out, nil
}

// Search returns albums then tracks matching query, at most limit of each.
func (c *spotifyClient) Search(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	res, err := c.raw.Search(ctx, query, spotify.SearchTypeAlbum|spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, err
	}
	var out []Suggestion
	if res.Albums != nil {
		for _, a := range res.Albums.Albums {
			out = append(out, Suggestion{
				Name:  "Spotify: 💿 " + a.Name + " - " + firstArtist(a.Artists),
				Value: "spotify:album:" + a.ID.String(),
			})
		}
	}
	if res.Tracks != nil {
		for _, t := range res.Tracks.Tracks {
			out = append(out, Suggestion{
				Name:  "Spotify: 🎵 " + t.Name + " - " + firstArtist(t.Artists),
				Value: "spotify:track:" + t.ID.String(),
			})
		}
	}
	return out, nil
}
