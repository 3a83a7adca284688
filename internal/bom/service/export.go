package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

const (
	ContentTypeCSV   = "text/csv"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var bomExportHeaders = []string{
	"PCB", "Part", "Description", "Manufacturer", "MPN", "Quantity",
	"Available", "Cost", "Reference", "Schematic Reference", "Notes",
}

// ExportFile is a rendered BOM export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type exportRow struct {
	pcb          string
	part         string
	description  string
	manufacturer string
	mpn          string
	quantity     int64
	available    int64
	cost         decimal.Decimal
	reference    string
	schematicRef string
	notes        string
}

func (r exportRow) strings() []string {
	return []string{
		r.pcb, r.part, r.description, r.manufacturer, r.mpn,
		strconv.FormatInt(r.quantity, 10), strconv.FormatInt(r.available, 10),
		r.cost.StringFixed(4), r.reference, r.schematicRef, r.notes,
	}
}

func exportRows(snapshot *dto.BomResponse) []exportRow {
	pcbNames := make(map[int64]string, len(snapshot.Pcbs))
	for _, p := range snapshot.Pcbs {
		pcbNames[p.PcbID] = p.Name
	}

	rows := make([]exportRow, 0, len(snapshot.Parts))
	for _, v := range snapshot.Parts {
		item := v.ToDomain()
		row := exportRow{
			pcb:          pcbNames[v.PcbID],
			part:         v.PartName,
			description:  v.CustomDescription,
			quantity:     v.Quantity,
			available:    domain.ResolveAvailable(item),
			cost:         item.Cost(),
			reference:    v.ReferenceID,
			schematicRef: v.SchematicReferenceID,
			notes:        v.Notes,
		}
		if v.Part != nil {
			if row.part == "" {
				row.part = v.Part.PartNumber
			}
			if row.description == "" {
				row.description = v.Part.Description
			}
			row.manufacturer = v.Part.Manufacturer
			row.mpn = v.Part.ManufacturerPartNumber
		}
		rows = append(rows, row)
	}
	return rows
}

func renderCSV(rows []exportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(bomExportHeaders); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(r.strings()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderExcel(rows []exportRow, totalCost decimal.Decimal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "BOM"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range bomExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, r := range rows {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.pcb)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.part)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.description)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.manufacturer)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.mpn)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.quantity)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.available)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.cost.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), r.reference)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), r.schematicRef)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), r.notes)
	}

	// 汇总行
	summaryRow := len(rows) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d line items", len(rows)))
	f.SetCellValue(sheet, fmt.Sprintf("H%d", summaryRow), totalCost.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("K%d", summaryRow), summaryStyle)

	colWidths := []float64{14, 20, 28, 16, 18, 9, 10, 10, 14, 18, 24}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportFilename(projectName, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, projectName)
	return fmt.Sprintf("BOM_%s.%s", name, ext)
}

// Export renders the project's BOM as CSV or Excel.
func (s *BomService) Export(ctx context.Context, userID string, projectID int64, format string) (*ExportFile, error) {
	if format == "" {
		format = dto.FormatCSV
	}
	snapshot, err := s.snapshotByID(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	rows := exportRows(snapshot)

	var file ExportFile
	switch format {
	case dto.FormatCSV:
		data, err := renderCSV(rows)
		if err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		file = ExportFile{Filename: exportFilename(snapshot.Name, "csv"), ContentType: ContentTypeCSV, Data: data}
	case dto.FormatExcel:
		data, err := renderExcel(rows, snapshot.TotalCost)
		if err != nil {
			return nil, fmt.Errorf("render excel: %w", err)
		}
		file = ExportFile{Filename: exportFilename(snapshot.Name, "xlsx"), ContentType: ContentTypeExcel, Data: data}
	default:
		return nil, invalid("unsupported export format %q", format)
	}
	s.metrics.RecordOperation("export_" + format)

	if s.archive != nil {
		ext := file.Filename[strings.LastIndex(file.Filename, ".")+1:]
		object := fmt.Sprintf("exports/%s/%d/%s.%s", userID, projectID, time.Now().UTC().Format("20060102T150405Z"), ext)
		if err := s.archive.Archive(ctx, object, file.ContentType, file.Data); err != nil {
			s.logger.Warn("bom export archive failed",
				zap.Int64("project_id", projectID),
				zap.String("object", object),
				zap.Error(err))
		}
	}
	return &file, nil
}
