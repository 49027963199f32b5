package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/truckdock/internal/models"

	"github.com/xuri/excelize/v2"
)

func TestBuildExportWorkbook(t *testing.T) {
	prep := "08:00"
	updated := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	trucks := []models.Truck{
		{ID: "t1", Terminal: "A", ShippingNo: "S1", DockCode: "D1", TruckRoute: "R1", PreparationStart: &prep,
			StatusPreparation: "Finished", StatusLoading: "Delay", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), UpdatedAt: &updated},
		{ID: "t2", Terminal: "B", ShippingNo: "S2", DockCode: "D2", TruckRoute: "R2",
			StatusPreparation: "On Process", StatusLoading: "On Process", CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	}
	f, err := BuildExportWorkbook(trucks)
	if err != nil {
		t.Fatalf("build export failed: %v", err)
	}
	rows, err := f.GetRows(ExportSheetName)
	if err != nil {
		t.Fatalf("read rows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header + 2 rows got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(ExportHeaders, ",") {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "t1" || rows[1][5] != "08:00" || rows[1][11] != "2024-01-01" || rows[1][12] != "2024-01-02" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if len(rows[2]) > 12 && rows[2][12] != "" {
		t.Fatalf("want empty updated date got %q", rows[2][12])
	}
	if got := ExportFilename(time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC)); got != "trucks_export_2024-05-06.xlsx" {
		t.Fatalf("unexpected export filename: %s", got)
	}
}

func TestBuildTemplateWorkbookRoundTrips(t *testing.T) {
	f, err := BuildTemplateWorkbook()
	if err != nil {
		t.Fatalf("build template failed: %v", err)
	}
	sheets := f.GetSheetList()
	if strings.Join(sheets, ",") != "Template,Instructions,Examples" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	styleID, err := f.GetCellStyle(TemplateSheetName, "A1")
	if err != nil {
		t.Fatalf("get header style failed: %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("load header style failed: %v", err)
	}
	if style.Font == nil || !style.Font.Bold || len(style.Fill.Color) == 0 || !strings.EqualFold(style.Fill.Color[0], "2196F3") && !strings.EqualFold(style.Fill.Color[0], "#2196F3") {
		t.Fatalf("unexpected header style: %+v fill=%+v", style.Font, style.Fill)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write template failed: %v", err)
	}
	result, err := ParseTemplateWorkbook(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse template failed: %v", err)
	}
	if len(result.Templates) != len(templateSampleRows) || len(result.Errors) != 0 {
		t.Fatalf("want %d templates without errors got %d %v", len(templateSampleRows), len(result.Templates), result.Errors)
	}
	if result.TotalRecordsToCreate != 31+31+29+29 {
		t.Fatalf("unexpected total records: %d", result.TotalRecordsToCreate)
	}

	instructions, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	title, _ := instructions.GetCellValue(InstructionsSheetName, "A1")
	if title == "" {
		t.Fatalf("want instructions title")
	}
}
