package analyzer

import (
	"os"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

// DefaultChartWidth and DefaultChartHeight match spec.md §6's default
// raster output dimensions.
const (
	DefaultChartWidth  = 3840
	DefaultChartHeight = 2160
	renderInterval     = time.Second
)

// Renderer is the Analyzer's background once-per-second rendering task.
// It snapshots the three series under their guards (see Analyzer.snapshot),
// skips the render if neither the benchmark nor the asset series grew
// since the last tick, and otherwise overwrites a raster image at Path.
type Renderer struct {
	logger *zap.Logger
	path   string
	width  int
	height int

	stop chan struct{}
	done chan struct{}

	lastMarketLen int
	lastAssetLen  int
}

// NewRenderer constructs a Renderer. path is the output image file,
// overwritten on each render (spec.md §6); width/height <= 0 select the
// spec's default 3840x2160.
func NewRenderer(logger *zap.Logger, path string, width, height int) *Renderer {
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}
	return &Renderer{
		logger: logger,
		path:   path,
		width:  width,
		height: height,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the render loop on its own goroutine until Stop is called.
func (r *Renderer) Start(a *Analyzer) {
	ticker := time.NewTicker(renderInterval)
	go func() {
		defer ticker.Stop()
		defer close(r.done)
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.tick(a)
			}
		}
	}()
}

// Stop signals the render loop to exit and waits for it to do so.
func (r *Renderer) Stop() {
	select {
	case <-r.stop:
		// already stopped
	default:
		close(r.stop)
	}
	<-r.done
}

func (r *Renderer) tick(a *Analyzer) {
	market, asset, cash := a.snapshot()

	if len(market) == r.lastMarketLen && len(asset) == r.lastAssetLen {
		r.logger.Info("skipping render: neither series grew")
		return
	}
	r.lastMarketLen = len(market)
	r.lastAssetLen = len(asset)

	if r.path == "" {
		return
	}

	if err := r.render(market, asset, cash); err != nil {
		r.logger.Error("chart render failed", zap.Error(err))
	}
}

func (r *Renderer) render(market, asset, cash []point) error {
	graph := chart.Chart{
		Width:  r.width,
		Height: r.height,
		Series: []chart.Series{
			continuousSeries("benchmark", market),
			continuousSeries("asset", asset),
			continuousSeries("cash", cash),
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return graph.Render(chart.PNG, f)
}

func continuousSeries(name string, points []point) chart.Series {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.value.InexactFloat64()
	}
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
	}
}
