package footballdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the public football-data.co.uk site.
const DefaultBaseURL = "https://www.football-data.co.uk"

// Client downloads season result files from football-data.co.uk
type Client struct {
	baseURL    string
	httpClient *http.Client
	workers    int
}

// New creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		workers:    4,
	}
}

// SeasonLinks lists the absolute URLs of every CSV linked from a league page
// such as "englandm.php", in page order without duplicates.
func (c *Client) SeasonLinks(ctx context.Context, page string) ([]string, error) {
	pageURL, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(page, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing page url: %w", err)
	}

	body, err := c.get(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", page, err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find(`a[href$=".csv"]`).Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			log.Warnf("[footballdata] skipping bad link %q: %v", href, err)
			return
		}
		abs := pageURL.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})

	log.Debugf("[footballdata] %s lists %d csv files", page, len(links))
	return links, nil
}

// FetchSheet downloads and parses one season file.
func (c *Client) FetchSheet(ctx context.Context, fileURL string) (*Sheet, error) {
	body, err := c.get(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	sheet, err := ReadSheet(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileURL, err)
	}
	sheet.Source = fileURL
	return sheet, nil
}

// FetchLeagues downloads every season listed on the given league pages.
// Sheets come back in page then link order.
func (c *Client) FetchLeagues(ctx context.Context, pages []string) ([]*Sheet, error) {
	var links []string
	for _, page := range pages {
		l, err := c.SeasonLinks(ctx, page)
		if err != nil {
			return nil, err
		}
		links = append(links, l...)
	}

	sheets := make([]*Sheet, len(links))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, link := range links {
		g.Go(func() error {
			sheet, err := c.FetchSheet(ctx, link)
			if err != nil {
				return err
			}
			sheets[i] = sheet
			log.Debugf("[footballdata] ✓ %s (%d rows)", link, len(sheet.Rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (c *Client) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %d", target, resp.StatusCode)
	}
	return resp.Body, nil
}
