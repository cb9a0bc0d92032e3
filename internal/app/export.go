package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"sheet-probe/internal/instrument"
	"sheet-probe/internal/storage"
)

// seriesPoint is one flattened row of a run's stored sample series.
type seriesPoint struct {
	level  float64
	index  int
	sample instrument.Sample
}

// Export renders a stored run's sample series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	run, err := a.resolveRun(ctx, store, opts.RunID)
	if err != nil {
		return err
	}

	points, err := flattenRun(run)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("run %s has no stored sample series", shortID(run.ID))
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Str("run_id", run.ID).
		Int("total", len(points)).
		Int("exported", len(downsampled)).
		Msg("exporting run series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, run.ID, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

// resolveRun finds a run by full id, by short-id prefix, or the most recent
// run when id is empty.
func (a *App) resolveRun(ctx context.Context, store *storage.Store, id string) (storage.TestRun, error) {
	if id == "" {
		runs, err := store.ListRecentRuns(ctx, 1)
		if err != nil {
			return storage.TestRun{}, err
		}
		if len(runs) == 0 {
			return storage.TestRun{}, errors.New("no runs stored")
		}
		return runs[0], nil
	}

	run, err := store.GetRun(ctx, id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return storage.TestRun{}, err
	}

	runs, err := store.ListRecentRuns(ctx, 100)
	if err != nil {
		return storage.TestRun{}, err
	}
	for _, candidate := range runs {
		if strings.HasPrefix(candidate.ID, id) {
			return candidate, nil
		}
	}
	return storage.TestRun{}, fmt.Errorf("run %q not found", id)
}

func flattenRun(run storage.TestRun) ([]seriesPoint, error) {
	if len(run.Series) == 0 || string(run.Series) == "null" {
		return nil, nil
	}

	var series []instrument.Series
	if err := json.Unmarshal(run.Series, &series); err != nil {
		return nil, fmt.Errorf("decode stored series: %w", err)
	}

	var points []seriesPoint
	for i, level := range series {
		levelValue := 0.0
		if i < len(run.Levels) {
			levelValue = run.Levels[i]
		}
		for j, sample := range level {
			points = append(points, seriesPoint{level: levelValue, index: j, sample: sample})
		}
	}
	return points, nil
}

func downsamplePoints(points []seriesPoint, max int) []seriesPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]seriesPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeSeriesCSV(path, runID string, points []seriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"run_id", "level", "sample_index", "elapsed_s", "source_a", "voltage_v", "current_a", "resistance_ohm", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			runID,
			formatFloat(point.level),
			strconv.Itoa(point.index),
			formatFloat(point.sample.Elapsed),
			formatFloat(point.sample.Source),
			formatFloat(point.sample.Voltage),
			formatFloat(point.sample.Current),
			formatFloat(point.sample.Resistance),
			formatFloat(point.sample.Status),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path string, points []seriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]float64, len(points))
	voltage := make([]float64, len(points))
	current := make([]float64, len(points))

	for i, point := range points {
		x[i] = float64(i)
		voltage[i] = point.sample.Voltage
		current[i] = point.sample.Current
	}

	voltFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	ampFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3g")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Sample",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		YAxis: chart.YAxis{
			Name:           "Voltage (V)",
			ValueFormatter: voltFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Current (A)",
			ValueFormatter: ampFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Voltage",
				XValues: x,
				YValues: voltage,
			},
			chart.ContinuousSeries{
				Name:    "Current",
				XValues: x,
				YValues: current,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
