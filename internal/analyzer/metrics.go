package analyzer

import (
	"math"

	"github.com/atlas-desktop/trading-backend/pkg/types"
	"github.com/atlas-desktop/trading-backend/pkg/utils"
	"github.com/shopspring/decimal"
)

const periodsPerYear = 252

// MetricsCalculator turns a portfolio-asset series and a benchmark
// series into the performance and risk tables spec.md §4.4 calls for.
// It extends the teacher's original return/Sharpe/Sortino/drawdown
// calculator (internal/backtester/metrics.go) with the benchmark-relative
// figures spec.md adds: alpha, beta, information ratio, tracking error,
// and a longest-drawdown-length count.
type MetricsCalculator struct{}

func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Calculate computes the performance table from the portfolio asset series.
func (mc *MetricsCalculator) Calculate(assetSeries []decimal.Decimal) types.PerformanceMetrics {
	var m types.PerformanceMetrics
	if len(assetSeries) < 2 {
		return m
	}

	initial := assetSeries[0]
	final := assetSeries[len(assetSeries)-1]
	if !initial.IsZero() {
		m.TotalReturn = final.Sub(initial).Div(initial)
	}

	returns := utils.CalculateReturns(assetSeries)
	if len(returns) == 0 {
		return m
	}

	meanReturn := utils.CalculateMean(returns)
	m.AnnualizedReturn = meanReturn.Mul(decimal.NewFromInt(periodsPerYear))

	stdDev := utils.CalculateStdDev(returns)
	m.Volatility = stdDev.Mul(decimal.NewFromFloat(math.Sqrt(periodsPerYear)))
	if !stdDev.IsZero() {
		dailySharpe := meanReturn.Div(stdDev)
		m.SharpeRatio = dailySharpe.Mul(decimal.NewFromFloat(math.Sqrt(periodsPerYear)))
	}

	downside := downsideDeviation(returns)
	if !downside.IsZero() {
		m.SortinoRatio = meanReturn.Div(downside).Mul(decimal.NewFromFloat(math.Sqrt(periodsPerYear)))
	}

	m.MaxDrawdown = utils.CalculateMaxDrawdown(assetSeries)
	m.LongestDrawdown = longestDrawdownLength(assetSeries)

	return m
}

// CalculateRiskMetrics computes benchmark-relative figures: alpha, beta,
// information ratio, and tracking error of the portfolio's return series
// against the benchmark's return series.
func (mc *MetricsCalculator) CalculateRiskMetrics(assetSeries, benchmarkSeries []decimal.Decimal) types.RiskMetrics {
	var rm types.RiskMetrics

	strategyReturns := utils.CalculateReturns(assetSeries)
	benchmarkReturns := utils.CalculateReturns(benchmarkSeries)

	n := len(strategyReturns)
	if len(benchmarkReturns) < n {
		n = len(benchmarkReturns)
	}
	if n < 2 {
		return rm
	}
	strategyReturns = strategyReturns[:n]
	benchmarkReturns = benchmarkReturns[:n]

	meanStrategy := utils.CalculateMean(strategyReturns)
	meanBenchmark := utils.CalculateMean(benchmarkReturns)

	var covariance, benchmarkVariance decimal.Decimal
	for i := 0; i < n; i++ {
		sDiff := strategyReturns[i].Sub(meanStrategy)
		bDiff := benchmarkReturns[i].Sub(meanBenchmark)
		covariance = covariance.Add(sDiff.Mul(bDiff))
		benchmarkVariance = benchmarkVariance.Add(bDiff.Mul(bDiff))
	}
	divisor := decimal.NewFromInt(int64(n - 1))
	covariance = covariance.Div(divisor)
	benchmarkVariance = benchmarkVariance.Div(divisor)

	if !benchmarkVariance.IsZero() {
		rm.Beta = covariance.Div(benchmarkVariance)
	}
	rm.Alpha = meanStrategy.Sub(rm.Beta.Mul(meanBenchmark)).Mul(decimal.NewFromInt(periodsPerYear))

	excessReturns := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		excessReturns[i] = strategyReturns[i].Sub(benchmarkReturns[i])
	}
	meanExcess := utils.CalculateMean(excessReturns)
	trackingErrorDaily := utils.CalculateStdDev(excessReturns)
	rm.TrackingError = trackingErrorDaily.Mul(decimal.NewFromFloat(math.Sqrt(periodsPerYear)))
	if !trackingErrorDaily.IsZero() {
		rm.InformationRatio = meanExcess.Div(trackingErrorDaily).Mul(decimal.NewFromFloat(math.Sqrt(periodsPerYear)))
	}

	return rm
}

func downsideDeviation(returns []decimal.Decimal) decimal.Decimal {
	var negative []decimal.Decimal
	for _, r := range returns {
		if r.LessThan(decimal.Zero) {
			negative = append(negative, r)
		}
	}
	if len(negative) == 0 {
		return decimal.Zero
	}
	return utils.CalculateStdDev(negative)
}

// longestDrawdownLength returns the longest run of consecutive samples
// strictly below the running peak. spec.md §9 treats this metric's
// exactness as non-normative, so this implements a clean definition
// rather than replicating the reference's boundary-buggy version.
func longestDrawdownLength(series []decimal.Decimal) int {
	if len(series) == 0 {
		return 0
	}

	longest := 0
	current := 0
	peak := series[0]

	for _, v := range series {
		if v.GreaterThanOrEqual(peak) {
			peak = v
			if current > longest {
				longest = current
			}
			current = 0
			continue
		}
		current++
	}
	if current > longest {
		longest = current
	}
	return longest
}
