package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/truckdock/internal/constants"
	"github.com/truckdock/internal/models"

	"github.com/xuri/excelize/v2"
)

// 工作簿名称
const (
	ExportSheetName       = "Trucks"
	TemplateSheetName     = "Template"
	InstructionsSheetName = "Instructions"
	ExamplesSheetName     = "Examples"
	TemplateFilename      = "truck_monthly_import_template.xlsx"
	templateHeaderColor   = "#2196F3"
)

// ExportHeaders 导出列
var ExportHeaders = []string{
	"ID", "Terminal", "Shipping No", "Dock Code", "Truck Route",
	"Prep Start", "Prep End", "Loading Start", "Loading End",
	"Prep Status", "Loading Status", "Created Date", "Updated Date",
}

var templateSampleRows = [][]interface{}{
	{"2024-01", "A", "SHP001", "DOCK-A1", "Bangkok-Chonburi", "08:00", "08:30", "09:00", "10:00", "Finished", "Finished"},
	{"2024-01", "A", "SHP002", "DOCK-A1", "Bangkok-Rayong", "09:00", "09:30", "10:00", "11:30", "Finished", "On Process"},
	{"2024-02", "B", "SHP001", "DOCK-B1", "Bangkok-Chonburi", "08:00", "08:30", "09:00", "10:00", "On Process", "On Process"},
	{"2024-02", "B", "SHP001", "DOCK-B2", "Bangkok-Chonburi", "10:00", "10:15", "11:00", "12:45", "Delay", "On Process"},
}

var templateInstructions = []string{
	"",
	"BASIC RULES:",
	"1. Fill in the Template sheet with your monthly truck data",
	"2. Required fields: Month, Terminal, Shipping No, Dock Code, Route",
	"3. Month format: YYYY-MM (e.g., 2024-01 for January 2024)",
	"4. Time format: HH:MM (e.g., 08:00, 14:30)",
	"5. Valid status values: \"On Process\", \"Delay\", \"Finished\"",
	"",
	"DUPLICATE HANDLING:",
	"6. Same dock codes, terminals and routes may appear many times",
	"7. Only exact matches are updated",
	"8. Any other combination creates a new record",
	"",
	"UPDATE CONDITIONS (ALL must match):",
	"9. Same Date + Same Terminal + Same Shipping No + Same Dock Code + Same Route",
	"10. Example: 2024-01-15, Terminal A, SHP001, DOCK-01, Route ABC -> Updates",
	"11. Different: 2024-01-15, Terminal A, SHP001, DOCK-02, Route ABC -> New record",
	"",
	"MONTHLY PROCESSING:",
	"12. Each row creates daily records for the entire month",
	"13. Example: \"2024-01\" creates 31 records (Jan 1-31, 2024)",
	"14. Time fields are copied to all daily records",
	"15. Upload the file, review the preview, then confirm",
}

var templateExamples = []string{
	"",
	"SCENARIO 1 - WILL UPDATE:",
	"Existing: 2024-01-15 | Terminal A | SHP001 | DOCK-01 | Route ABC",
	"Import:   2024-01-15 | Terminal A | SHP001 | DOCK-01 | Route ABC",
	"Result:   Updates preparation/loading times and status only",
	"",
	"SCENARIO 2 - WILL CREATE NEW (Different Dock):",
	"Existing: 2024-01-15 | Terminal A | SHP001 | DOCK-01 | Route ABC",
	"Import:   2024-01-15 | Terminal A | SHP001 | DOCK-02 | Route ABC",
	"Result:   Creates new record (dock code different)",
	"",
	"SCENARIO 3 - WILL CREATE NEW (Different Date):",
	"Existing: 2024-01-15 | Terminal A | SHP001 | DOCK-01 | Route ABC",
	"Import:   2024-01-16 | Terminal A | SHP001 | DOCK-01 | Route ABC",
	"Result:   Creates new record (date different)",
	"",
	"KEY POINT: Only EXACT matches (all 5 fields) get updated!",
}

// ExportFilename 导出文件名 trucks_export_YYYY-MM-DD.xlsx
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("trucks_export_%s.xlsx", now.UTC().Format(constants.DateLayout))
}

// BuildExportWorkbook 将记录写入工作簿
func BuildExportWorkbook(trucks []models.Truck) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ExportSheetName); err != nil {
		return nil, err
	}

	headerRow := make([]interface{}, len(ExportHeaders))
	for i, h := range ExportHeaders {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &headerRow); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(ExportSheetName, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	for i, truck := range trucks {
		row := []interface{}{
			truck.ID,
			truck.Terminal,
			truck.ShippingNo,
			truck.DockCode,
			truck.TruckRoute,
			derefString(truck.PreparationStart),
			derefString(truck.PreparationEnd),
			derefString(truck.LoadingStart),
			derefString(truck.LoadingEnd),
			truck.StatusPreparation,
			truck.StatusLoading,
			truck.CreatedAt.UTC().Format(constants.DateLayout),
			"",
		}
		if truck.UpdatedAt != nil {
			row[12] = truck.UpdatedAt.UTC().Format(constants.DateLayout)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ExportSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(ExportSheetName, "A", "A", 38)
	_ = f.SetColWidth(ExportSheetName, "B", "E", 18)
	_ = f.SetColWidth(ExportSheetName, "F", "M", 14)
	return f, nil
}

// BuildTemplateWorkbook 生成导入模板：Template / Instructions / Examples 三个 Sheet
func BuildTemplateWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", TemplateSheetName); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(RequiredTemplateColumns)+len(OptionalTemplateColumns))
	for _, name := range RequiredTemplateColumns {
		header = append(header, name)
	}
	for _, name := range OptionalTemplateColumns {
		header = append(header, name)
	}
	if err := f.SetSheetRow(TemplateSheetName, "A1", &header); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{templateHeaderColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(TemplateSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	// 时间列按文本写入，避免 Excel 自动转换
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return nil, err
	}
	for i, row := range templateSampleRows {
		values := row
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(TemplateSheetName, cell, &values); err != nil {
			return nil, err
		}
	}
	_ = f.SetColStyle(TemplateSheetName, "F:I", textStyle)
	_ = f.SetColWidth(TemplateSheetName, "A", "B", 12)
	_ = f.SetColWidth(TemplateSheetName, "C", "C", 15)
	_ = f.SetColWidth(TemplateSheetName, "D", "D", 12)
	_ = f.SetColWidth(TemplateSheetName, "E", "E", 20)
	_ = f.SetColWidth(TemplateSheetName, "F", "K", 12)

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := writeTextSheet(f, InstructionsSheetName, "Monthly Import Instructions:", templateInstructions, titleStyle, boldStyle,
		"BASIC", "DUPLICATE", "UPDATE", "MONTHLY"); err != nil {
		return nil, err
	}
	if err := writeTextSheet(f, ExamplesSheetName, "Import Behavior Examples:", templateExamples, titleStyle, boldStyle,
		"SCENARIO", "KEY POINT"); err != nil {
		return nil, err
	}
	return f, nil
}

func writeTextSheet(f *excelize.File, sheet, title string, lines []string, titleStyle, boldStyle int, boldPrefixes ...string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
		return err
	}
	for i, line := range lines {
		cell := fmt.Sprintf("A%d", i+3)
		if err := f.SetCellValue(sheet, cell, line); err != nil {
			return err
		}
		for _, prefix := range boldPrefixes {
			if strings.HasPrefix(line, prefix) {
				if err := f.SetCellStyle(sheet, cell, cell, boldStyle); err != nil {
					return err
				}
				break
			}
		}
	}
	return f.SetColWidth(sheet, "A", "A", 90)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
