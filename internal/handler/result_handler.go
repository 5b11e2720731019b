package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/livequiz-api/internal/domain/entity"
	"github.com/yourusername/livequiz-api/internal/handler/dto"
	"github.com/yourusername/livequiz-api/internal/handler/helper"
	"github.com/yourusername/livequiz-api/internal/service"
)

// ResultHandler отдает итоги голосования
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler создает новый обработчик результатов
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// GetResults возвращает подсчет голосов по вопросу
// GET /results/:num
func (h *ResultHandler) GetResults(c *gin.Context) {
	number := c.MustGet("questionNumber").(int)

	results, err := h.results.GetResults(c.Request.Context(), number)
	if err != nil {
		handleServiceError(c, "ResultHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewResultsResponse(results))
}

// ExportResults выгружает итоги вопроса в CSV или XLSX
// GET /results/:num/export?format=csv|xlsx
func (h *ResultHandler) ExportResults(c *gin.Context) {
	number := c.MustGet("questionNumber").(int)

	format := c.DefaultQuery("format", "xlsx")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format, use csv or xlsx"})
		return
	}

	results, err := h.results.GetResults(c.Request.Context(), number)
	if err != nil {
		handleServiceError(c, "ResultHandler", err)
		return
	}

	filename := fmt.Sprintf("question_%d_results", number)
	if format == "csv" {
		h.exportCSV(c, results, filename)
		return
	}
	h.exportXLSX(c, results, filename)
}

var exportHeaders = []string{"Вариант", "Ответ", "Голосов", "Правильный"}

// exportRows возвращает строки таблицы итогов: по строке на вариант и итоговую строку
func exportRows(results *entity.QuestionResults) [][]string {
	options := helper.ConvertAnswersToOptions(results.Question)
	rows := make([][]string, 0, len(options)+1)
	for _, opt := range options {
		choice := strconv.Itoa(opt.Number)
		correct := "Нет"
		if results.Question.IsCorrect(choice) {
			correct = "Да"
		}
		rows = append(rows, []string{
			choice,
			sanitizeForExcel(opt.Text),
			strconv.Itoa(results.Votes.Count(opt.Number)),
			correct,
		})
	}
	rows = append(rows, []string{"", "Всего", strconv.Itoa(results.Votes.Total()), ""})
	return rows
}

// exportCSV экспортирует итоги в CSV
func (h *ResultHandler) exportCSV(c *gin.Context, results *entity.QuestionResults, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Вопрос", sanitizeForExcel(results.Question.Text)})
	writer.Write(exportHeaders)
	for _, row := range exportRows(results) {
		writer.Write(row)
	}
}

// exportXLSX экспортирует итоги в Excel с использованием StreamWriter
func (h *ResultHandler) exportXLSX(c *gin.Context, results *entity.QuestionResults, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Итоги"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		log.WithError(err).Error("[ResultHandler] Ошибка переименования листа")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.WithError(err).Error("[ResultHandler] Ошибка создания StreamWriter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", []interface{}{"Вопрос", sanitizeForExcel(results.Question.Text)}); err != nil {
		log.WithError(err).Warn("[ResultHandler] Ошибка записи заголовка вопроса")
	}
	if err := sw.SetRow("A2", toRow(exportHeaders)); err != nil {
		log.WithError(err).Warn("[ResultHandler] Ошибка записи заголовков")
	}
	for i, row := range exportRows(results) {
		cell := fmt.Sprintf("A%d", i+3)
		if err := sw.SetRow(cell, toRow(row)); err != nil {
			log.WithError(err).Warnf("[ResultHandler] Ошибка записи строки %d", i+3)
		}
	}

	if err := sw.Flush(); err != nil {
		log.WithError(err).Error("[ResultHandler] Ошибка при Flush")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.WithError(err).Error("[ResultHandler] Ошибка записи Excel в response")
	}
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
