// Package export writes filtered dashboard data to Excel workbooks.
package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

// Sheet names in the exported workbook.
const (
	SheetIncidents = "Incidents"
	SheetRanking   = "Ranking"
	SheetForecast  = "Forecast"
)

// Workbook is the content of one export.
type Workbook struct {
	Incidents []domain.Incident
	Ranking   []domain.NeighborhoodStat
	Forecast  *forecast.Result // optional
}

var incidentHeader = []any{"id", "tipo_crimen", "fecha", "hora", "barrio", "edad", "sexo", "longitud", "latitud"}

// Write renders wb as an .xlsx document to w.
func Write(w io.Writer, wb Workbook) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func build(wb Workbook) (_ *excelize.File, err error) {
	f := excelize.NewFile()
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()
	if err := f.SetSheetName("Sheet1", SheetIncidents); err != nil {
		return nil, err
	}
	if err := writeIncidents(f, wb.Incidents); err != nil {
		return nil, fmt.Errorf("write %s sheet: %w", SheetIncidents, err)
	}
	if err := writeRanking(f, wb.Ranking); err != nil {
		return nil, fmt.Errorf("write %s sheet: %w", SheetRanking, err)
	}
	if wb.Forecast != nil {
		if err := writeForecast(f, *wb.Forecast); err != nil {
			return nil, fmt.Errorf("write %s sheet: %w", SheetForecast, err)
		}
	}
	return f, nil
}

func writeIncidents(f *excelize.File, incidents []domain.Incident) error {
	header := append([]any{}, incidentHeader...)
	for _, flag := range domain.SocialFlags {
		header = append(header, string(flag))
	}
	if err := setRow(f, SheetIncidents, 1, header); err != nil {
		return err
	}

	for i, inc := range incidents {
		row := []any{inc.ID, inc.Category, inc.RawDate, inc.TimeOfDay, inc.Neighborhood, nil, inc.Sex, nil, nil}
		if inc.Age != nil {
			row[5] = *inc.Age
		}
		if inc.HasLocation {
			row[7], row[8] = inc.Location.Lon(), inc.Location.Lat()
		}
		for _, flag := range domain.SocialFlags {
			v, ok := inc.Flags[flag]
			switch {
			case !ok:
				row = append(row, nil)
			case v:
				row = append(row, 1)
			default:
				row = append(row, 0)
			}
		}
		if err := setRow(f, SheetIncidents, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRanking(f *excelize.File, stats []domain.NeighborhoodStat) error {
	if _, err := f.NewSheet(SheetRanking); err != nil {
		return err
	}
	if err := setRow(f, SheetRanking, 1, []any{"rank", "barrio", "incidents", "severity", "color"}); err != nil {
		return err
	}
	for i, s := range stats {
		if err := setRow(f, SheetRanking, i+2, []any{s.Rank, s.Name, s.Count, string(s.Severity), s.Color}); err != nil {
			return err
		}
	}
	return nil
}

func writeForecast(f *excelize.File, res forecast.Result) error {
	if _, err := f.NewSheet(SheetForecast); err != nil {
		return err
	}
	if err := setRow(f, SheetForecast, 1, []any{"week", "actual", "predicted"}); err != nil {
		return err
	}
	row := 2
	for _, p := range res.Actual {
		var actual any
		if !math.IsNaN(p.Count) {
			actual = p.Count
		}
		if err := setRow(f, SheetForecast, row, []any{p.WeekStart.Format(time.DateOnly), actual, nil}); err != nil {
			return err
		}
		row++
	}
	for _, p := range res.Predicted {
		if err := setRow(f, SheetForecast, row, []any{p.Date.Format(time.DateOnly), nil, p.Value}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
