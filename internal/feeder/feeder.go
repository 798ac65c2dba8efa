// Package feeder reads historical bars from a CSV source and publishes
// them as MarketData events at low priority.
package feeder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-desktop/trading-backend/internal/eventbus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// column indices resolved from the header row.
type columns struct {
	timestamp, close, volume, open, high, low int
}

// Feeder reads bars from r and publishes one MarketData event per row.
type Feeder struct {
	logger    *zap.Logger
	symbol    string
	publisher *eventbus.Publisher
	pace      time.Duration
}

// NewFeeder constructs a Feeder. pace <= 0 disables the ~1ms
// between-bars pause spec.md §4.5 describes as a usability nicety, not a
// correctness requirement.
func NewFeeder(logger *zap.Logger, symbol string, publisher *eventbus.Publisher, pace time.Duration) *Feeder {
	return &Feeder{logger: logger, symbol: symbol, publisher: publisher, pace: pace}
}

// Run reads every row from r and publishes a MarketData event for it. A
// malformed row is a fatal error: Run returns it immediately, and the
// caller is expected to terminate the feeder goroutine's owner (spec.md
// §7, "Malformed input row (feeder): fatal").
func (f *Feeder) Run(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("feeder: reading header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return fmt.Errorf("feeder: %w", err)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("feeder: reading row: %w", err)
		}

		bar, err := parseBar(row, cols, f.symbol)
		if err != nil {
			return fmt.Errorf("feeder: malformed row %v: %w", row, err)
		}

		f.logger.Debug("publishing bar", zap.String("timestamp", bar.Timestamp))
		f.publisher.Publish(bar)

		if f.pace > 0 {
			time.Sleep(f.pace)
		}
	}
}

func resolveColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	find := func(names ...string) (int, bool) {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i, true
			}
		}
		return 0, false
	}

	var cols columns
	var ok bool
	if cols.timestamp, ok = find("timestamp", "date"); !ok {
		return cols, fmt.Errorf("missing timestamp column")
	}
	if cols.close, ok = find("close/last", "close", "last"); !ok {
		return cols, fmt.Errorf("missing close/last column")
	}
	if cols.volume, ok = find("volume"); !ok {
		return cols, fmt.Errorf("missing volume column")
	}
	if cols.open, ok = find("open"); !ok {
		return cols, fmt.Errorf("missing open column")
	}
	if cols.high, ok = find("high"); !ok {
		return cols, fmt.Errorf("missing high column")
	}
	if cols.low, ok = find("low"); !ok {
		return cols, fmt.Errorf("missing low column")
	}
	return cols, nil
}

func parseBar(row []string, cols columns, symbol string) (*eventbus.MarketDataEvent, error) {
	get := func(i int) (string, error) {
		if i >= len(row) {
			return "", fmt.Errorf("row has only %d fields, need index %d", len(row), i)
		}
		return strings.TrimSpace(row[i]), nil
	}

	parsePrice := func(s string) (decimal.Decimal, error) {
		s = strings.TrimPrefix(s, "$")
		return decimal.NewFromString(s)
	}

	timestamp, err := get(cols.timestamp)
	if err != nil {
		return nil, err
	}

	closeStr, err := get(cols.close)
	if err != nil {
		return nil, err
	}
	closePrice, err := parsePrice(closeStr)
	if err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}

	openStr, err := get(cols.open)
	if err != nil {
		return nil, err
	}
	openPrice, err := parsePrice(openStr)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	highStr, err := get(cols.high)
	if err != nil {
		return nil, err
	}
	highPrice, err := parsePrice(highStr)
	if err != nil {
		return nil, fmt.Errorf("high: %w", err)
	}

	lowStr, err := get(cols.low)
	if err != nil {
		return nil, err
	}
	lowPrice, err := parsePrice(lowStr)
	if err != nil {
		return nil, fmt.Errorf("low: %w", err)
	}

	volStr, err := get(cols.volume)
	if err != nil {
		return nil, err
	}
	volume, err := strconv.ParseInt(volStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("volume: %w", err)
	}

	return eventbus.NewMarketDataEvent(timestamp, symbol, openPrice, closePrice, highPrice, lowPrice, volume), nil
}
