package chart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/guillermoBallester/loaneda/internal/core/domain"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const histogramBins = 30

// Renderer writes PNG charts into a directory, one file per chart name.
type Renderer struct {
	dir    string
	logger *slog.Logger
	width  vg.Length
	height vg.Length
}

func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, logger: logger, width: 8 * vg.Inch, height: 4.5 * vg.Inch}
}

// Path returns the file a chart named name is written to.
func (r *Renderer) Path(name string) string {
	return filepath.Join(r.dir, name+".png")
}

func (r *Renderer) save(p *plot.Plot, name string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating chart directory: %w", err)
	}
	if err := p.Save(r.width, r.height, r.Path(name)); err != nil {
		return fmt.Errorf("saving chart %s: %w", name, err)
	}
	r.logger.Debug("chart written", slog.String("chart", name), slog.String("path", r.Path(name)))
	return nil
}

// NullPercentages draws a bar per column holding nulls, in ascending order.
// Nothing is drawn when no column has nulls.
func (r *Renderer) NullPercentages(name string, nulls []port.NullCount) error {
	var withNulls []port.NullCount
	for _, n := range nulls {
		if n.Count > 0 {
			withNulls = append(withNulls, n)
		}
	}
	if len(withNulls) == 0 {
		r.logger.Info("no missing values to plot", slog.String("chart", name))
		return nil
	}
	slices.SortStableFunc(withNulls, func(a, b port.NullCount) int {
		switch {
		case a.Percentage < b.Percentage:
			return -1
		case a.Percentage > b.Percentage:
			return 1
		}
		return 0
	})

	values := make(plotter.Values, len(withNulls))
	labels := make([]string, len(withNulls))
	for i, n := range withNulls {
		values[i] = n.Percentage
		labels[i] = n.Name
	}

	p := plot.New()
	p.Title.Text = "Missing values percentage per column"
	p.Y.Label.Text = "Percentage of missing values"
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return fmt.Errorf("building null chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(labels...)
	return r.save(p, name)
}

// Distribution draws a histogram of the observed values of a numeric column.
func (r *Renderer) Distribution(name string, col *domain.Column) error {
	x, ok := r.observed(name, col)
	if !ok {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Distribution of " + col.Name
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "Frequency"
	h, err := plotter.NewHist(plotter.Values(x), histogramBins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return r.save(p, name)
}

// BoxPlot draws the quartiles and outliers of a numeric column.
func (r *Renderer) BoxPlot(name string, col *domain.Column) error {
	x, ok := r.observed(name, col)
	if !ok {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Box plot of " + col.Name
	p.Y.Label.Text = col.Name
	b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(x))
	if err != nil {
		return fmt.Errorf("building box plot: %w", err)
	}
	p.Add(b)
	p.NominalX(col.Name)
	return r.save(p, name)
}

// Scatter plots each observed value against its row index.
func (r *Renderer) Scatter(name string, col *domain.Column) error {
	if _, ok := r.observed(name, col); !ok {
		return nil
	}

	pts := make(plotter.XYs, 0, col.Len())
	for i, v := range col.Numbers {
		if !col.IsNull(i) {
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
	}

	p := plot.New()
	p.Title.Text = "Scatter plot of " + col.Name
	p.X.Label.Text = "Index"
	p.Y.Label.Text = col.Name
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building scatter plot: %w", err)
	}
	s.Color = plotutil.Color(0)
	p.Add(s)
	return r.save(p, name)
}

// CorrelationMatrix draws the matrix as a diverging heat map over [-1, 1].
func (r *Renderer) CorrelationMatrix(name string, m port.CorrelationMatrix) error {
	if len(m.Columns) == 0 {
		r.logger.Info("no numeric columns to correlate", slog.String("chart", name))
		return nil
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(plotter.NewHeatMap(matrixGrid(m), cm.Palette(255)))
	p.NominalX(m.Columns...)
	rows := slices.Clone(m.Columns)
	slices.Reverse(rows)
	p.NominalY(rows...)
	p.X.Tick.Label.Rotation = 1.2
	return r.save(p, name)
}

// Recovery compares current and projected recovery percentages.
func (r *Renderer) Recovery(name string, rep port.RecoveryReport) error {
	values := plotter.Values{rep.Current.Total, rep.Current.Investor, rep.Projected.Total, rep.Projected.Investor}
	labels := []string{
		"Current (total)",
		"Current (investor)",
		fmt.Sprintf("%d months (total)", rep.ProjectionMonths),
		fmt.Sprintf("%d months (investor)", rep.ProjectionMonths),
	}

	p := plot.New()
	p.Title.Text = "Loan recovery"
	p.Y.Label.Text = "Percentage recovered"
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("building recovery chart: %w", err)
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.NominalX(labels...)
	return r.save(p, name)
}

// Segments draws label counts for charged-off and at-risk loans side by side.
func (r *Renderer) Segments(name string, s port.SegmentBreakdown) error {
	if len(s.ChargedOff) == 0 {
		r.logger.Info("segment has no labels", slog.String("chart", name), slog.String("column", s.Column))
		return nil
	}

	labels := make([]string, len(s.ChargedOff))
	co := make(plotter.Values, len(s.ChargedOff))
	ar := make(plotter.Values, len(s.AtRisk))
	for i, lc := range s.ChargedOff {
		labels[i] = lc.Label
		co[i] = float64(lc.Count)
	}
	for i, lc := range s.AtRisk {
		ar[i] = float64(lc.Count)
	}

	p := plot.New()
	p.Title.Text = s.Column + ": charged off vs at risk"
	p.Y.Label.Text = "Count"

	w := vg.Points(14)
	coBars, err := plotter.NewBarChart(co, w)
	if err != nil {
		return fmt.Errorf("building segment chart: %w", err)
	}
	coBars.Color = plotutil.Color(0)
	coBars.Offset = -w / 2
	arBars, err := plotter.NewBarChart(ar, w)
	if err != nil {
		return fmt.Errorf("building segment chart: %w", err)
	}
	arBars.Color = plotutil.Color(1)
	arBars.Offset = w / 2

	p.Add(coBars, arBars)
	p.Legend.Add("Charged off", coBars)
	p.Legend.Add("At risk", arBars)
	p.Legend.Top = true
	p.NominalX(labels...)
	return r.save(p, name)
}

// observed returns the non-null values of a numeric column, logging why a
// chart is skipped when there is nothing meaningful to draw.
func (r *Renderer) observed(name string, col *domain.Column) ([]float64, bool) {
	x := col.ObservedNumbers()
	if len(x) == 0 {
		r.logger.Info("no numeric values to plot", slog.String("chart", name), slog.String("column", col.Name))
		return nil, false
	}
	if floats.Min(x) == floats.Max(x) {
		r.logger.Info("constant column, nothing to plot", slog.String("chart", name), slog.String("column", col.Name))
		return nil, false
	}
	return x, true
}

// matrixGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn
// at the top.
type matrixGrid port.CorrelationMatrix

func (g matrixGrid) Dims() (c, r int) { return len(g.Columns), len(g.Columns) }
func (g matrixGrid) Z(c, r int) float64 {
	return g.Values[len(g.Columns)-1-r][c]
}
func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }
