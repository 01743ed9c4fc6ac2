package chart

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"epicli/internal/config"
	"epicli/internal/dataset"
	"epicli/internal/metrics"
	"epicli/internal/trend"
)

// Renderer assembles views from a dataset and writes them as xlsx
// workbooks with charts.
type Renderer struct {
	views   config.ViewsConfig
	horizon int
	logger  *slog.Logger
}

// NewRenderer creates a renderer with the configured view thresholds and
// projection horizon.
func NewRenderer(views config.ViewsConfig, projection config.ProjectionConfig, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		views:   views,
		horizon: projection.Horizon,
		logger:  logger.With(slog.String("component", "chart")),
	}
}

// BuildView prepares the view's dataset: the analysis subset with derived
// columns, extended by the projection horizon, with one trend overlay per
// series. It returns the extended dataset and the plotted column order.
//
// A series whose projection fails is kept without its overlay; a series
// whose column is missing entirely is dropped from the view.
func (r *Renderer) BuildView(ctx context.Context, ds *dataset.Dataset, view View) (*dataset.Dataset, []Series, error) {
	analysisFrom, err := dataset.AddDays(r.views.AnalysisStart, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("view %s: %w", view.Name, err)
	}
	subset, err := ds.Window(analysisFrom, ds.LastDate())
	if err != nil {
		return nil, nil, fmt.Errorf("view %s: select analysis range: %w", view.Name, err)
	}
	if err := addDerivedColumns(subset); err != nil {
		return nil, nil, fmt.Errorf("view %s: %w", view.Name, err)
	}

	canvas := subset.Clone()
	if err := canvas.ExtendDays(r.horizon); err != nil {
		return nil, nil, fmt.Errorf("view %s: extend canvas: %w", view.Name, err)
	}

	var plotted []Series
	for _, s := range view.Series {
		if !subset.HasColumn(s.Column) {
			r.logger.WarnContext(ctx, "view series column missing, dropping series",
				"view", view.Name,
				"column", s.Column,
			)
			continue
		}
		plotted = append(plotted, s)

		overlay := s.Column + SuffixProjection
		projected, err := trend.Project(subset, s.Column, overlay, trend.Options{
			Start:   r.views.FitStart,
			Horizon: r.horizon,
		})
		if err != nil {
			metrics.Projections.WithLabelValues(metrics.OutcomeError).Inc()
			r.logger.WarnContext(ctx, "projection failed, rendering raw series only",
				"view", view.Name,
				"column", s.Column,
				"error", err,
			)
			continue
		}
		metrics.Projections.WithLabelValues(metrics.OutcomeSuccess).Inc()

		vals, _ := projected.Column(overlay)
		if err := canvas.SetColumn(overlay, vals); err != nil {
			return nil, nil, fmt.Errorf("view %s: attach overlay %s: %w", view.Name, overlay, err)
		}
	}
	if len(plotted) == 0 {
		return nil, nil, fmt.Errorf("view %s: no plottable series in dataset", view.Name)
	}
	return canvas, plotted, nil
}

// RenderOptions controls where a view is written.
type RenderOptions struct {
	OutputPath string
}

// RenderView builds the view from the dataset and writes its workbook.
func (r *Renderer) RenderView(ctx context.Context, ds *dataset.Dataset, view View, opts RenderOptions) error {
	canvas, plotted, err := r.BuildView(ctx, ds, view)
	if err != nil {
		metrics.RenderedViews.WithLabelValues(view.Name, metrics.OutcomeError).Inc()
		return err
	}
	if err := writeWorkbook(canvas, view, plotted, opts.OutputPath); err != nil {
		metrics.RenderedViews.WithLabelValues(view.Name, metrics.OutcomeError).Inc()
		return fmt.Errorf("view %s: %w", view.Name, err)
	}

	metrics.RenderedViews.WithLabelValues(view.Name, metrics.OutcomeSuccess).Inc()
	r.logger.InfoContext(ctx, "view rendered",
		"view", view.Name,
		"path", opts.OutputPath,
		"rows", canvas.Len(),
		"series", len(plotted),
	)
	return nil
}

// RenderAll writes every standard view into the given directory, one
// workbook per view. Views keep rendering even when an earlier one fails;
// the first error is reported after the pass.
func (r *Renderer) RenderAll(ctx context.Context, ds *dataset.Dataset, dir string) error {
	var firstErr error
	for _, view := range StandardViews() {
		opts := RenderOptions{OutputPath: filepath.Join(dir, view.Name+"_overview.xlsx")}
		if err := r.RenderView(ctx, ds, view, opts); err != nil {
			r.logger.ErrorContext(ctx, "view render failed",
				"view", view.Name,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// writeWorkbook lays the canvas out as one sheet (dates, series columns,
// overlay columns) and attaches a chart over the plotted ranges.
func writeWorkbook(canvas *dataset.Dataset, view View, plotted []Series, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := view.Title
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	// column layout: dates, then per series its values and its overlay
	type plottedColumn struct {
		header string
		column string
		color  string
	}
	columns := []plottedColumn{{header: dataset.DateColumn}}
	for _, s := range plotted {
		columns = append(columns, plottedColumn{header: s.Label, column: s.Column, color: s.Color})
		overlay := s.Column + SuffixProjection
		if canvas.HasColumn(overlay) {
			columns = append(columns, plottedColumn{header: s.Label + " (trend)", column: overlay, color: s.Color})
		}
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return fmt.Errorf("write header %q: %w", col.header, err)
		}
		if col.color != "" {
			style, err := f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{col.color}},
			})
			if err != nil {
				return fmt.Errorf("header style: %w", err)
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("apply header style: %w", err)
			}
		}
	}

	for row := 0; row < canvas.Len(); row++ {
		for i, col := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, row+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if col.column == "" {
				if err := f.SetCellValue(sheet, cell, canvas.Date(row)); err != nil {
					return fmt.Errorf("write date: %w", err)
				}
				continue
			}
			v, _ := canvas.Value(col.column, row)
			if math.IsNaN(v) {
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write value: %w", err)
			}
		}
	}

	chartType := excelize.Line
	if view.Area {
		chartType = excelize.Area
	}
	lastRow := canvas.Len() + 1
	categories := fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, lastRow)
	var series []excelize.ChartSeries
	for i := 1; i < len(columns); i++ {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("series column name: %w", err)
		}
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", sheet, colName),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, colName, colName, lastRow),
		})
	}
	anchor, err := excelize.CoordinatesToCellName(len(columns)+2, 2)
	if err != nil {
		return fmt.Errorf("chart anchor: %w", err)
	}
	if err := f.AddChart(sheet, anchor, &excelize.Chart{
		Type:      chartType,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: view.Title}},
		Dimension: excelize.ChartDimension{Width: 1280, Height: 520},
	}); err != nil {
		return fmt.Errorf("add chart: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
