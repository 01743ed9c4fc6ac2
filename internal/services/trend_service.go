package services

import (
	"context"
	"log/slog"
	"math"

	"epicli/internal/trend"
)

// ProjectionRequest asks for a trend projection of one column. Optional
// fields fall back to the projection defaults.
type ProjectionRequest struct {
	Column    string `json:"column" validate:"required"`
	NewColumn string `json:"new_column,omitempty" validate:"omitempty,nefield=Column"`
	Start     string `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Stop      string `json:"stop,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Horizon   *int   `json:"horizon,omitempty" validate:"omitempty,min=0"`
}

// ProjectionPoint is one date of the projected curve. Value is nil on
// dates before the fit window.
type ProjectionPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// ProjectionResult is the API shape of a finished projection.
type ProjectionResult struct {
	Column    string            `json:"column"`
	NewColumn string            `json:"new_column"`
	Start     string            `json:"start"`
	Stop      string            `json:"stop"`
	Horizon   int               `json:"horizon"`
	A         float64           `json:"a"`
	B         float64           `json:"b"`
	Points    []ProjectionPoint `json:"points"`
}

// TrendService runs projections against the current dataset.
type TrendService struct {
	data   *DataService
	logger *slog.Logger
}

// NewTrendService wires the service.
func NewTrendService(data *DataService, logger *slog.Logger) *TrendService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrendService{
		data:   data,
		logger: logger.With(slog.String("component", "trend_service")),
	}
}

// Project fits and projects the requested column. Errors from the trend
// package pass through unwrapped so transport can map them to statuses.
func (s *TrendService) Project(ctx context.Context, req ProjectionRequest) (*ProjectionResult, error) {
	ds, err := s.data.Current()
	if err != nil {
		return nil, err
	}

	newColumn := req.NewColumn
	if newColumn == "" {
		newColumn = req.Column + "_exp"
	}
	opts := trend.Options{
		Start:   req.Start,
		Stop:    req.Stop,
		Horizon: trend.DefaultHorizon,
	}
	if req.Horizon != nil {
		opts.Horizon = *req.Horizon
	}

	model, window, err := trend.FitColumn(ds, req.Column, opts)
	if err != nil {
		return nil, err
	}
	out, err := trend.Project(ds, req.Column, newColumn, opts)
	if err != nil {
		return nil, err
	}

	values, _ := out.Column(newColumn)
	points := make([]ProjectionPoint, out.Len())
	for i := range points {
		points[i] = ProjectionPoint{Date: out.Date(i)}
		if !math.IsNaN(values[i]) {
			v := values[i]
			points[i].Value = &v
		}
	}

	s.logger.InfoContext(ctx, "projection computed",
		slog.String("column", req.Column),
		slog.String("window_start", window.Start),
		slog.String("window_stop", window.Stop),
		slog.Int("horizon", opts.Horizon),
		slog.Float64("a", model.A),
		slog.Float64("b", model.B))

	return &ProjectionResult{
		Column:    req.Column,
		NewColumn: newColumn,
		Start:     window.Start,
		Stop:      window.Stop,
		Horizon:   opts.Horizon,
		A:         model.A,
		B:         model.B,
		Points:    points,
	}, nil
}

// ColumnSeries returns one raw column as dated points for the API.
func (s *TrendService) ColumnSeries(column string) ([]ProjectionPoint, error) {
	ds, err := s.data.Current()
	if err != nil {
		return nil, err
	}
	values, ok := ds.Column(column)
	if !ok {
		return nil, trend.ErrUnknownColumn
	}
	points := make([]ProjectionPoint, ds.Len())
	for i := range points {
		points[i] = ProjectionPoint{Date: ds.Date(i)}
		if !math.IsNaN(values[i]) {
			v := values[i]
			points[i].Value = &v
		}
	}
	return points, nil
}
