package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// TradingDays returns the full and half sessions in [from, to], ascending.
func (c *Client) TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("jquants calendar: from %s is after to %s", from.Format(dateLayout), to.Format(dateLayout))
	}
	query := url.Values{}
	query.Set("from", from.Format(dateLayout))
	query.Set("to", to.Format(dateLayout))
	body, err := c.doRequest(ctx, "/markets/trading_calendar", query)
	if err != nil {
		return nil, err
	}
	var resp calendarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jquants calendar: decode: %w", err)
	}

	seen := make(map[time.Time]struct{}, len(resp.TradingCalendar))
	days := make([]time.Time, 0, len(resp.TradingCalendar))
	for _, d := range resp.TradingCalendar {
		if !isTradingDivision(d.HolidayDivision) {
			continue
		}
		day, ok := ParseDate(d.Date)
		if !ok {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// "1" is a full session, "2" a half session.
func isTradingDivision(div string) bool {
	return div == "1" || div == "2"
}
