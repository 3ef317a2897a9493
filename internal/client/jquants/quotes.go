package jquants

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const quotesPath = "/prices/daily_quotes"

// DailyQuotesByDate fetches every security's bar for one trading day.
func (c *Client) DailyQuotesByDate(ctx context.Context, day time.Time) ([]Quote, error) {
	query := url.Values{}
	query.Set("date", day.Format(dateLayout))
	return c.fetchQuotes(ctx, query, c.dayMaxPages)
}

// DailyQuotesByCode fetches one security's bars across [from, to].
func (c *Client) DailyQuotesByCode(ctx context.Context, code string, from, to time.Time) ([]Quote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("jquants quotes: code is required")
	}
	query := url.Values{}
	query.Set("code", code)
	query.Set("from", from.Format(dateLayout))
	query.Set("to", to.Format(dateLayout))
	return c.fetchQuotes(ctx, query, c.codeMaxPages)
}

// fetchQuotes follows pagination_key until the provider stops sending one.
// Going past maxPages, or seeing a key twice, fails the whole fetch.
func (c *Client) fetchQuotes(ctx context.Context, query url.Values, maxPages int) ([]Quote, error) {
	var out []Quote
	seen := map[string]struct{}{}
	for pages := 1; ; pages++ {
		body, err := c.doRequest(ctx, quotesPath, query)
		if err != nil {
			return nil, err
		}
		quotes, next, err := decodeQuotesPage(body)
		if err != nil {
			return nil, fmt.Errorf("jquants quotes: decode page %d: %w", pages, err)
		}
		out = append(out, quotes...)
		if next == "" {
			return out, nil
		}
		if pages >= maxPages {
			return nil, fmt.Errorf("%w: %d pages", ErrPaginationLimit, pages)
		}
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("%w: repeated pagination key after %d pages", ErrPaginationLimit, pages)
		}
		seen[next] = struct{}{}
		query.Set("pagination_key", next)
	}
}
