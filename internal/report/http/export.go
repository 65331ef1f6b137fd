package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/finconsol/finconsol/internal/report"
)

// exportColumns returns the visible value columns in their grid order.
func exportColumns(rep *report.Report) []report.ColumnDef {
	columns := make([]report.ColumnDef, 0, len(rep.ColumnDefs))
	for _, col := range rep.ColumnDefs {
		if col.Hide {
			continue
		}
		columns = append(columns, col)
	}
	return columns
}

func cellFloat(row map[string]any, field string) (float64, bool) {
	v, ok := row[field]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func rowString(row map[string]any, field string) string {
	if v, ok := row[field].(string); ok {
		return v
	}
	return ""
}

func exportFilename(statement, ext string) string {
	return fmt.Sprintf("%s-export-%s.%s", statement, time.Now().Format("20060102"), ext)
}

func (h *Handler) exportCSV(statement string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, ok := h.buildReport(w, r, statement)
		if !ok {
			return
		}
		columns := exportColumns(rep)

		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		header := []string{"Account Code", "Account Name"}
		for _, col := range columns {
			header = append(header, col.HeaderName)
		}
		if err := writer.Write(header); err != nil {
			h.logger.Error("write export csv header", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		for _, row := range rep.RowData {
			record := []string{rowString(row, "account_code"), rowString(row, "account_name")}
			for _, col := range columns {
				if f, ok := cellFloat(row, col.Field); ok {
					record = append(record, strconv.FormatFloat(f, 'f', 2, 64))
				} else {
					record = append(record, "")
				}
			}
			if err := writer.Write(record); err != nil {
				h.logger.Error("write export csv row", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			h.logger.Error("flush export csv", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(statement, "csv"))
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logger.Error("write export csv", slog.Any("error", err))
		}
	}
}

func (h *Handler) exportXLSX(statement string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, ok := h.buildReport(w, r, statement)
		if !ok {
			return
		}
		columns := exportColumns(rep)

		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		const sheet = "Report"
		f.SetSheetName("Sheet1", sheet)

		amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			h.logger.Error("create export style", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		setCell := func(col, rowIdx int, v any) error {
			cell, err := excelize.CoordinatesToCellName(col, rowIdx)
			if err != nil {
				return err
			}
			return f.SetCellValue(sheet, cell, v)
		}

		if err := setCell(1, 1, "Account Code"); err == nil {
			err = setCell(2, 1, "Account Name")
		}
		if err != nil {
			h.logger.Error("write export header", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		for i, col := range columns {
			if err := setCell(i+3, 1, col.HeaderName); err != nil {
				h.logger.Error("write export header", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		for rowNum, row := range rep.RowData {
			excelRow := rowNum + 2
			if err := setCell(1, excelRow, rowString(row, "account_code")); err != nil {
				h.logger.Error("write export row", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err := setCell(2, excelRow, rowString(row, "account_name")); err != nil {
				h.logger.Error("write export row", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			for i, col := range columns {
				f64, ok := cellFloat(row, col.Field)
				if !ok {
					continue
				}
				cell, cerr := excelize.CoordinatesToCellName(i+3, excelRow)
				if cerr != nil {
					h.logger.Error("write export row", slog.Any("error", cerr))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if err := f.SetCellValue(sheet, cell, f64); err != nil {
					h.logger.Error("write export row", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if err := f.SetCellStyle(sheet, cell, cell, amountStyle); err != nil {
					h.logger.Error("style export row", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
			}
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename(statement, "xlsx"))
		if err := f.Write(w); err != nil {
			h.logger.Error("write export xlsx", slog.Any("error", err))
		}
	}
}
