package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/votranphi/heartistry-user-api/internal/service"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// AuditHandler serves the admin-only audit trail.
type AuditHandler struct {
	Identity *service.Identity
}

func NewAuditHandler(identity *service.Identity) *AuditHandler {
	return &AuditHandler{Identity: identity}
}

// All handles GET /audit-logs/all.
func (h *AuditHandler) All(c *gin.Context) {
	entries, err := h.Identity.ListAuditLogs()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ExportXLSX handles GET /audit-logs/export/xlsx.
func (h *AuditHandler) ExportXLSX(c *gin.Context) {
	entries, err := h.Identity.ListAuditLogs()
	if err != nil {
		writeServiceError(c, err)
		return
	}

	f := excelize.NewFile()
	sheetName := "Audit Logs"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Message(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Action", "Entity", "Entity ID", "User ID", "Username", "Role", "IP Address", "Details", "Timestamp"}
	for i, name := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, name)
	}

	for idx, e := range entries {
		row := idx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), e.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.Action)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.Entity)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), e.EntityID)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), e.UserID)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), e.Username)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), e.Role)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), e.IPAddress)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), e.Details)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), e.Timestamp.Format(time.RFC3339))
	}

	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "F", "F", 15)
	f.SetColWidth(sheetName, "I", "I", 40)
	f.SetColWidth(sheetName, "J", "J", 22)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\"audit_logs_"+time.Now().Format("20060102")+".xlsx\"")

	if err := f.Write(c.Writer); err != nil {
		util.Message(c, http.StatusInternalServerError, "Internal Server Error")
	}
}
