package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/Irehund/jobtrack/internal/model"
)

// defaultFeeds are the We Work Remotely category feeds polled when the
// caller does not supply its own list.
var defaultFeeds = []string{
	"https://weworkremotely.com/categories/remote-programming-jobs.rss",
	"https://weworkremotely.com/categories/remote-devops-sysadmin-jobs.rss",
	"https://weworkremotely.com/categories/remote-product-jobs.rss",
}

// RemoteFeed is the keyless source backed by public remote-job RSS feeds.
// Feeds are not queryable, so items are pulled and matched locally against
// the search keywords.
type RemoteFeed struct {
	feeds  []string
	client *http.Client
}

func NewRemoteFeed(feeds ...string) *RemoteFeed {
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	return &RemoteFeed{
		feeds:  feeds,
		client: &http.Client{Timeout: httpTimeout},
	}
}

func (r *RemoteFeed) ID() string   { return "remotefeed" }
func (r *RemoteFeed) Name() string { return "Remote Feeds" }

func (r *RemoteFeed) Search(ctx context.Context, c Criteria) ([]model.Listing, error) {
	parser := gofeed.NewParser()
	listings := make([]model.Listing, 0, c.Limit())

	var lastErr error
	fetched := 0
	for _, feedURL := range r.feeds {
		if len(listings) >= c.Limit() {
			break
		}

		body, err := doGET(ctx, r.client, r.ID(), feedURL, http.Header{
			"Accept": []string{"application/rss+xml, application/xml"},
		})
		if err != nil {
			slog.Warn("feed fetch failed", "source", r.ID(), "feed", feedURL, "err", err)
			lastErr = err
			continue
		}

		feed, err := parser.Parse(bytes.NewReader(body))
		if err != nil {
			slog.Warn("feed parse failed", "source", r.ID(), "feed", feedURL, "err", err)
			lastErr = &Failure{SourceID: r.ID(), Message: fmt.Sprintf("parse feed: %v", err)}
			continue
		}
		fetched++

		for _, it := range feed.Items {
			if len(listings) >= c.Limit() {
				break
			}
			l, ok := r.normalize(it, feed.Title)
			if !ok {
				continue
			}
			if !matchesKeywords(l, c.Keywords) {
				continue
			}
			listings = append(listings, l)
		}
	}

	// One dead feed should not fail the source, but all of them dead is a
	// real failure the orchestrator should retry.
	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}
	return listings, nil
}

// normalize converts one feed item. We Work Remotely titles the items
// "Company: Role"; anything without that shape keeps the feed title as the
// company.
func (r *RemoteFeed) normalize(it *gofeed.Item, feedTitle string) (model.Listing, bool) {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		return model.Listing{}, false
	}

	company := strings.TrimSpace(feedTitle)
	if name, role, found := strings.Cut(title, ": "); found {
		company = strings.TrimSpace(name)
		title = strings.TrimSpace(role)
	}

	key := it.GUID
	if key == "" {
		key = it.Link
	}

	l := model.Listing{
		ID:          fmt.Sprintf("remotefeed_%08x", fnvHash(key)),
		Source:      r.ID(),
		Title:       title,
		Company:     company,
		Location:    "Remote",
		PostingURL:  it.Link,
		Description: htmlToText(it.Description),
		DatePosted:  it.PublishedParsed,
		IsRemote:    true,
	}
	if l.DatePosted == nil {
		l.DatePosted = it.UpdatedParsed
	}
	l.ExperienceLevel = inferExperience(title)
	if b, err := json.Marshal(it); err == nil {
		l.Raw = b
	}
	return l, true
}

// matchesKeywords keeps the listing when any keyword appears in the title
// or description. No keywords keeps everything.
func matchesKeywords(l model.Listing, keywords []string) bool {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(strings.ToLower(k)); k != "" {
			terms = append(terms, k)
		}
	}
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(l.Title + " " + l.Description)
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// htmlToText strips feed HTML down to whitespace-collapsed text.
func htmlToText(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func fnvHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (r *RemoteFeed) ValidateCredential(ctx context.Context) (bool, string) {
	return true, "Remote Feeds requires no credential"
}
