package songlookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/songwars/backend/internal/engine"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// Client looks up a music video for a submission. It is strictly
// best-effort: any failure, including an absent API key, yields nil and
// the battle carries on without enrichment.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

func New(apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		// The timeout bounds lookup latency here, at the collaborator
		// boundary; the room loop never waits on it.
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log,
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *Client) Lookup(ctx context.Context, title, artist string) *engine.MediaRef {
	if c.apiKey == "" {
		return nil
	}

	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", title+" "+artist)
	q.Set("type", "video")
	q.Set("videoCategoryId", "10")
	q.Set("maxResults", "3")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("youtube search failed", "err", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("youtube search failed", "status", resp.StatusCode)
		return nil
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warnw("youtube response decode failed", "err", err)
		return nil
	}
	if len(body.Items) == 0 {
		return nil
	}

	// Prefer the first result that looks like actual music content.
	for _, item := range body.Items {
		if looksLikeMusic(item.Snippet.Title) {
			return &engine.MediaRef{
				VideoID:      item.ID.VideoID,
				Title:        item.Snippet.Title,
				Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
				ChannelTitle: item.Snippet.ChannelTitle,
			}
		}
	}
	first := body.Items[0]
	return &engine.MediaRef{
		VideoID:      first.ID.VideoID,
		Title:        first.Snippet.Title,
		Thumbnail:    first.Snippet.Thumbnails.Medium.URL,
		ChannelTitle: first.Snippet.ChannelTitle,
	}
}

var nonMusicMarkers = []string{"karaoke", "instrumental", "reaction", "review"}

func looksLikeMusic(title string) bool {
	t := strings.ToLower(title)
	for _, marker := range nonMusicMarkers {
		if strings.Contains(t, marker) {
			return false
		}
	}
	return true
}
