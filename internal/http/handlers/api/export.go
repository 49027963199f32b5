package api

import (
	"fmt"
	"time"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportTrucks 按列表筛选条件导出 Excel
func (h *Handler) ExportTrucks(c *gin.Context) {
	trucks, err := h.TruckService.ListAll(truckQueryFromRequest(c))
	if err != nil {
		respondTruckError(c, err, "error.export_failed")
		return
	}
	file, err := service.BuildExportWorkbook(trucks)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.export_failed", err)
		return
	}
	writeWorkbook(c, file, service.ExportFilename(time.Now()), "error.export_failed")
}

// DownloadTemplate 下载月度导入模板
func (h *Handler) DownloadTemplate(c *gin.Context) {
	file, err := service.BuildTemplateWorkbook()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.template_failed", err)
		return
	}
	writeWorkbook(c, file, service.TemplateFilename, "error.template_failed")
}

func writeWorkbook(c *gin.Context, file *excelize.File, filename, errKey string) {
	defer func() { _ = file.Close() }()
	buf, err := file.WriteToBuffer()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, errKey, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, xlsxContentType, buf.Bytes())
}
