package service

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/truckdock/internal/constants"

	"github.com/xuri/excelize/v2"
)

// 模板列名
const (
	ColumnMonth      = "Month"
	ColumnTerminal   = "Terminal"
	ColumnShippingNo = "Shipping No"
	ColumnDockCode   = "Dock Code"
	ColumnRoute      = "Route"
	ColumnPrepStart  = "Prep Start"
	ColumnPrepEnd    = "Prep End"
	ColumnLoadStart  = "Load Start"
	ColumnLoadEnd    = "Load End"
	ColumnStatusPrep = "Status Prep"
	ColumnStatusLoad = "Status Load"
)

const (
	minutesPerDay = 24 * 60
	// 吸收 Excel 浮点误差，避免 09:05 落成 09:04
	serialTimeEpsilon = 1e-6
)

// RequiredTemplateColumns 必填列（顺序即报错顺序）
var RequiredTemplateColumns = []string{ColumnMonth, ColumnTerminal, ColumnShippingNo, ColumnDockCode, ColumnRoute}

// OptionalTemplateColumns 可选列
var OptionalTemplateColumns = []string{ColumnPrepStart, ColumnPrepEnd, ColumnLoadStart, ColumnLoadEnd, ColumnStatusPrep, ColumnStatusLoad}

// 支持的上传扩展名（excelize 不支持旧版 .xls）
var allowedImportExtensions = map[string]struct{}{
	".xlsx": {},
	".xlsm": {},
	".xltx": {},
	".xltm": {},
}

// MonthlyTemplate 月度模板：一行代表整月每天相同的作业安排
type MonthlyTemplate struct {
	Row               int     `json:"row"`
	Year              int     `json:"year"`
	Month             int     `json:"month"`
	Terminal          string  `json:"terminal"`
	ShippingNo        string  `json:"shipping_no"`
	DockCode          string  `json:"dock_code"`
	TruckRoute        string  `json:"truck_route"`
	PreparationStart  *string `json:"preparation_start"`
	PreparationEnd    *string `json:"preparation_end"`
	LoadingStart      *string `json:"loading_start"`
	LoadingEnd        *string `json:"loading_end"`
	StatusPreparation string  `json:"status_preparation"`
	StatusLoading     string  `json:"status_loading"`
	PreviewDays       int     `json:"preview_days"`
}

// ParseResult 模板解析结果
type ParseResult struct {
	Templates            []MonthlyTemplate `json:"templates"`
	Errors               []string          `json:"errors"`
	ColumnsFound         []string          `json:"columns_found"`
	TotalRecordsToCreate int               `json:"total_records_to_create"`
}

// ValidateImportFilename 校验上传文件扩展名
func ValidateImportFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if _, ok := allowedImportExtensions[ext]; !ok {
		return ErrImportFileType
	}
	return nil
}

// ParseTemplateWorkbook 解析工作簿第一个 Sheet，单元格按原始值读取以保留时间序列值
func ParseTemplateWorkbook(r io.Reader) (*ParseResult, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportReadFailed, err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrImportReadFailed)
	}
	rows, err := file.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportReadFailed, err)
	}

	var header []string
	var body [][]string
	if len(rows) > 0 {
		header = rows[0]
		body = rows[1:]
	}
	return ParseTemplateRows(header, body)
}

// ParseTemplateRows 校验表头并逐行解析；缺少必填列时整体失败，行级错误累积后继续
func ParseTemplateRows(header []string, rows [][]string) (*ParseResult, error) {
	columns := indexColumns(header)

	var missing []string
	for _, name := range RequiredTemplateColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	result := &ParseResult{
		Templates:    []MonthlyTemplate{},
		Errors:       []string{},
		ColumnsFound: columnsFound(header),
	}

	for index, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rowNo := index + 2
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		var rowErrors []string
		template := MonthlyTemplate{Row: rowNo}

		monthRaw := cell(ColumnMonth)
		if monthRaw == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Month is required", rowNo))
		} else if year, month, err := ParseMonthToken(monthRaw); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: Month must be in format YYYY-MM (e.g., 2024-01)", rowNo))
		} else {
			template.Year = year
			template.Month = month
		}

		required := []struct {
			column string
			target *string
		}{
			{ColumnTerminal, &template.Terminal},
			{ColumnShippingNo, &template.ShippingNo},
			{ColumnDockCode, &template.DockCode},
			{ColumnRoute, &template.TruckRoute},
		}
		for _, field := range required {
			value := cell(field.column)
			if value == "" {
				rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %s is required", rowNo, field.column))
				continue
			}
			*field.target = value
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			continue
		}

		template.PreparationStart = NormalizeTimeValue(cell(ColumnPrepStart))
		template.PreparationEnd = NormalizeTimeValue(cell(ColumnPrepEnd))
		template.LoadingStart = NormalizeTimeValue(cell(ColumnLoadStart))
		template.LoadingEnd = NormalizeTimeValue(cell(ColumnLoadEnd))
		template.StatusPreparation = NormalizeStatus(cell(ColumnStatusPrep))
		template.StatusLoading = NormalizeStatus(cell(ColumnStatusLoad))
		template.PreviewDays = DaysInMonth(template.Year, template.Month)

		result.Templates = append(result.Templates, template)
		result.TotalRecordsToCreate += template.PreviewDays
	}
	return result, nil
}

// ParseMonthToken 解析 YYYY-M / YYYY-MM / YYYY/MM，也接受 Excel 日期序列值
func ParseMonthToken(raw string) (int, int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, fmt.Errorf("empty month")
	}

	sep := ""
	switch {
	case strings.Contains(raw, "-"):
		sep = "-"
	case strings.Contains(raw, "/"):
		sep = "/"
	}
	if sep == "" {
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil || serial < 1 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return 0, 0, fmt.Errorf("invalid month token %q", raw)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid month serial %q: %w", raw, err)
		}
		return t.Year(), int(t.Month()), nil
	}

	parts := strings.Split(raw, sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid month token %q", raw)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("invalid year in %q", raw)
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month in %q", raw)
	}
	return year, month, nil
}

// MonthFromValue 从任意单元格值提取年月（time.Time 直接取年月）
func MonthFromValue(value interface{}) (int, int, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Year(), int(v.Month()), nil
	case *time.Time:
		if v == nil {
			return 0, 0, fmt.Errorf("empty month")
		}
		return v.Year(), int(v.Month()), nil
	case float64:
		return ParseMonthToken(strconv.FormatFloat(v, 'f', -1, 64))
	case string:
		return ParseMonthToken(v)
	default:
		return 0, 0, fmt.Errorf("unsupported month value %T", value)
	}
}

// DaysInMonth 指定年月的天数，月份非法时返回 0
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NormalizeStatus 状态归一（不区分大小写），非法或缺失时为 On Process
func NormalizeStatus(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, status := range constants.TruckStatuses {
		if strings.EqualFold(raw, status) {
			return status
		}
	}
	return constants.TruckStatusOnProcess
}

// IsValidStatus 是否为规范大小写的合法状态
func IsValidStatus(status string) bool {
	for _, item := range constants.TruckStatuses {
		if item == status {
			return true
		}
	}
	return false
}

// NormalizeTimeValue 将单元格值归一为 HH:MM，无法识别时返回 nil（不报错）
func NormalizeTimeValue(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case *string:
		if v == nil {
			return nil
		}
		return NormalizeTimeValue(*v)
	case string:
		return normalizeTimeText(v)
	case float64:
		return timeFromDayFraction(v)
	case float32:
		return timeFromDayFraction(float64(v))
	case int:
		return timeFromDayFraction(float64(v))
	case int64:
		return timeFromDayFraction(float64(v))
	case time.Time:
		return formatClock(v.Hour(), v.Minute())
	case *time.Time:
		if v == nil {
			return nil
		}
		return formatClock(v.Hour(), v.Minute())
	default:
		return nil
	}
}

func normalizeTimeText(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, ":") {
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil
		}
		hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil
		}
		minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil
		}
		if len(parts) == 3 {
			second, err := strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil || second < 0 || second > 59 {
				return nil
			}
		}
		return formatClock(hour, minute)
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return timeFromDayFraction(serial)
}

// timeFromDayFraction Excel 时间序列值：取小数部分乘以 1440 向下取整为分钟
func timeFromDayFraction(value float64) *string {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return nil
	}
	_, frac := math.Modf(value)
	minutes := int(math.Floor(frac*minutesPerDay + serialTimeEpsilon))
	if minutes >= minutesPerDay {
		minutes = minutesPerDay - 1
	}
	return formatClock(minutes/60, minutes%60)
}

func formatClock(hour, minute int) *string {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil
	}
	formatted := fmt.Sprintf("%02d:%02d", hour, minute)
	return &formatted
}

// ParseStrictTime 接口入参的时间校验：空值为 nil，其余必须能归一为 HH:MM
func ParseStrictTime(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	if !strings.Contains(*raw, ":") {
		return nil, ErrInvalidTime
	}
	normalized := normalizeTimeText(*raw)
	if normalized == nil {
		return nil, ErrInvalidTime
	}
	return normalized, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	known := append(append([]string{}, RequiredTemplateColumns...), OptionalTemplateColumns...)
	for idx, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		for _, canonical := range known {
			if strings.EqualFold(name, canonical) {
				name = canonical
				break
			}
		}
		if _, exists := columns[name]; !exists {
			columns[name] = idx
		}
	}
	return columns
}

func columnsFound(header []string) []string {
	found := make([]string, 0, len(header))
	for _, raw := range header {
		if name := strings.TrimSpace(raw); name != "" {
			found = append(found, name)
		}
	}
	return found
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
