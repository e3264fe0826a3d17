// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/pkg/pointer"
	"github.com/taibuivan/ikusare/pkg/slug"
)

// # Scraped Variant

// ScrapedItem is one entry of an HTML listing page. Link and Image are absolute.
type ScrapedItem struct {
	Site     string
	NativeID string
	Title    string
	Link     string
	Image    string
}

// Variant implements [RawItem].
func (item ScrapedItem) Variant() Variant { return VariantScraped }

// Ref implements [RawItem].
func (item ScrapedItem) Ref() string {
	return item.Site + ":" + firstNonEmpty(item.NativeID, item.Title)
}

// # Scraping Adapter

// ScrapeConfig carries everything a scraping adapter needs for one site.
type ScrapeConfig struct {
	Provider  config.Provider
	Timeout   time.Duration
	PageDelay time.Duration
}

// Scraper reads the listing pages of a site with no structured API.
//
// Items are keyed "<prefix>_<slug>" over the site-native id when the markup
// exposes one, else over the title. Title keys are best effort: two listings
// whose titles differ only in case, accents or punctuation share a record.
type Scraper struct {
	provider config.Provider
	site     config.ScrapeSite
	base     *url.URL
	timeout  time.Duration

	fetcher HTMLFetcher
	logger  *slog.Logger
	pages   *fetch.Throttle
}

// NewScraper constructs a scraping adapter. It fails when the provider row has
// no site details or an unparsable base URL.
func NewScraper(cfg ScrapeConfig, fetcher HTMLFetcher, logger *slog.Logger) (*Scraper, error) {
	if cfg.Provider.Scrape == nil {
		return nil, fmt.Errorf("provider: %s has no scrape site", cfg.Provider.Name)
	}
	base, err := url.Parse(cfg.Provider.Scrape.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("provider: %s has invalid base url %q", cfg.Provider.Name, cfg.Provider.Scrape.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scraper{
		provider: cfg.Provider,
		site:     *cfg.Provider.Scrape,
		base:     base,
		timeout:  cfg.Timeout,
		fetcher:  fetcher,
		logger:   logger.With(slog.String("provider", cfg.Provider.Name)),
		pages:    fetch.NewThrottle(cfg.PageDelay),
	}, nil
}

// Name implements [Adapter].
func (adapter *Scraper) Name() string { return adapter.provider.Name }

/*
ListItems implements [Adapter].

Every list path is read from page 1 up to the page cap. A path stops early
when a page cannot be fetched or adds no item not already seen in this run.
*/
func (adapter *Scraper) ListItems(ctx context.Context) ([]RawItem, error) {
	seen := make(map[string]bool)
	var items []RawItem

	for _, path := range adapter.site.ListPaths {
		for page := 1; page <= adapter.provider.PageCap; page++ {
			if err := adapter.pages.Wait(ctx); err != nil {
				return nil, err
			}

			pageURL := adapter.pageURL(path, page)
			html, ok := adapter.fetcher.FetchHTML(ctx, pageURL, adapter.timeout)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !ok {
				adapter.logger.Warn("list_page_unavailable", slog.String("url", pageURL))
				break
			}

			found, err := adapter.Parse(html)
			if err != nil {
				adapter.logger.Warn("list_page_unparsable", slog.String("url", pageURL), slog.Any("error", err))
				break
			}

			fresh := 0
			for _, item := range found {
				if seen[item.Ref()] {
					continue
				}
				seen[item.Ref()] = true
				items = append(items, item)
				fresh++
			}

			adapter.logger.Debug("list_page_read",
				slog.String("url", pageURL),
				slog.Int("items", len(found)),
				slog.Int("new_items", fresh),
			)
			if fresh == 0 {
				break
			}
		}
	}

	return items, nil
}

// Parse extracts listing entries from one HTML page. Entries without a title
// or a link are discarded.
func (adapter *Scraper) Parse(html string) ([]ScrapedItem, error) {
	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("provider: parse %s page: %w", adapter.Name(), err)
	}

	var items []ScrapedItem
	document.Find(adapter.site.ItemSelector).Each(func(_ int, entry *goquery.Selection) {
		title := strings.Join(strings.Fields(pick(entry, adapter.site.TitleSelector).Text()), " ")
		link := attr(pick(entry, adapter.site.LinkSelector), "href")
		if title == "" || link == "" {
			return
		}

		item := ScrapedItem{
			Site:  adapter.site.KeyPrefix,
			Title: title,
			Link:  adapter.resolve(link),
		}
		if adapter.site.IDAttribute != "" {
			item.NativeID = attr(entry, adapter.site.IDAttribute)
		}
		if adapter.site.ImageSelector != "" {
			image := pick(entry, adapter.site.ImageSelector)
			item.Image = adapter.resolve(firstNonEmpty(attr(image, "src"), attr(image, "data-src")))
		}

		items = append(items, item)
	})

	return items, nil
}

// Normalize implements [Adapter].
func (adapter *Scraper) Normalize(_ context.Context, raw RawItem) (catalog.Incoming, error) {
	item, ok := raw.(ScrapedItem)
	if !ok {
		return catalog.Incoming{}, fmt.Errorf("%w: %s cannot normalize %s", ErrWrongVariant, adapter.Name(), raw.Variant())
	}

	key := slug.Key(adapter.site.KeyPrefix, firstNonEmpty(item.NativeID, item.Title))
	if key == "" {
		return catalog.Incoming{}, fmt.Errorf("%w: %s title %q has no usable characters", ErrNoIdentity, adapter.Name(), item.Title)
	}

	return catalog.Incoming{
		Key:       key,
		Provider:  adapter.provider.Name,
		Title:     item.Title,
		Poster:    pointer.NonZero(item.Image),
		SourceURL: item.Link,
	}, nil
}

func (adapter *Scraper) pageURL(path string, page int) string {
	target := adapter.base.ResolveReference(&url.URL{Path: path})
	if page > 1 {
		query := target.Query()
		query.Set("page", strconv.Itoa(page))
		target.RawQuery = query.Encode()
	}
	return target.String()
}

// resolve makes ref absolute against the site's base URL.
func (adapter *Scraper) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return adapter.base.ResolveReference(parsed).String()
}

// pick returns the first match of selector inside entry, or entry itself when
// selector is empty.
func pick(entry *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return entry
	}
	return entry.Find(selector).First()
}

func attr(selection *goquery.Selection, name string) string {
	value, _ := selection.Attr(name)
	return strings.TrimSpace(value)
}
