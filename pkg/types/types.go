// Package types provides shared type definitions used across the
// backtesting pipeline's ambient surfaces (the monitor's JSON status
// payload and the analyzer's metrics table).
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCV represents a single historical bar. The feeder does not use it:
// it parses each CSV row straight into an eventbus.MarketDataEvent.
type OHLCV struct {
	Timestamp string          `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// PerformanceMetrics is the metrics table the Data Analyzer computes and
// exposes through the monitor's /status endpoint (spec.md §4.4).
type PerformanceMetrics struct {
	TotalReturn      decimal.Decimal `json:"totalReturn"`
	AnnualizedReturn decimal.Decimal `json:"annualizedReturn"`
	Volatility       decimal.Decimal `json:"volatility"`
	SharpeRatio      decimal.Decimal `json:"sharpeRatio"`
	SortinoRatio     decimal.Decimal `json:"sortinoRatio"`
	MaxDrawdown      decimal.Decimal `json:"maxDrawdown"`
	MaxDrawdownDate  time.Time       `json:"maxDrawdownDate"`
	LongestDrawdown  int             `json:"longestDrawdownLength"`
}

// RiskMetrics carries the benchmark-relative figures spec.md §4.4 adds
// beyond the teacher's original metrics set: alpha, beta, information
// ratio, and tracking error.
type RiskMetrics struct {
	Alpha            decimal.Decimal `json:"alpha"`
	Beta             decimal.Decimal `json:"beta"`
	InformationRatio decimal.Decimal `json:"informationRatio"`
	TrackingError    decimal.Decimal `json:"trackingError"`
}

// EquityCurvePoint is a single sample on a rendered time series.
type EquityCurvePoint struct {
	Timestamp string          `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// AnalyzerSnapshot is the JSON payload the monitor's GET /status endpoint
// serves: the latest sample of each series plus the current metrics
// table, computed on demand from the Analyzer's guarded series.
type AnalyzerSnapshot struct {
	Samples     int                `json:"samples"`
	Performance PerformanceMetrics `json:"performance"`
	Risk        RiskMetrics        `json:"risk"`
	LastMarket  decimal.Decimal    `json:"lastMarket"`
	LastAsset   decimal.Decimal    `json:"lastAsset"`
	LastCash    decimal.Decimal    `json:"lastCash"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
