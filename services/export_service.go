package services

import (
	"bytes"
	"fmt"
	"strconv"

	"davo_admin/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ExportFormat формат выгрузки списка аптек
type ExportFormat string

const (
	ExportFormatExcel ExportFormat = "xlsx"
	ExportFormatPDF   ExportFormat = "pdf"
)

// pdfMaxRows ограничение количества строк в PDF
const pdfMaxRows = 200

var exportHeaders = []string{"№", "Код", "Название аптеки", "Адрес", "Ориентир", "Телефон аптеки", "Телефон ответственного", "Активна", "Обучение", "Фирменный пакет", "Telegram бот"}

// ExportService выгрузка видимого списка аптек в файлы
type ExportService struct {
	logger *logrus.Logger
	// pdfFontPath TTF шрифт с кириллицей. Без него PDF строится базовым шрифтом,
	// который не содержит кириллицы.
	pdfFontPath string
}

// NewExportService создает сервис выгрузки
func NewExportService(logger *logrus.Logger, pdfFontPath string) *ExportService {
	return &ExportService{logger: logger, pdfFontPath: pdfFontPath}
}

// ContentType MIME тип файла выгрузки
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// ParseExportFormat разбирает формат выгрузки, по умолчанию xlsx
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", ExportFormatExcel:
		return ExportFormatExcel, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", fmt.Errorf("неподдерживаемый формат выгрузки: %s", s)
}

// Export формирует файл выгрузки
func (es *ExportService) Export(records []models.Market, format ExportFormat) ([]byte, error) {
	rows := exportRows(records)
	switch format {
	case ExportFormatPDF:
		return es.generatePDF(rows)
	default:
		return es.generateExcel(rows)
	}
}

func exportRows(records []models.Market) [][]string {
	rows := make([][]string, 0, len(records))
	for i, m := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Code,
			m.Name,
			m.Address,
			orDash(m.Landmark),
			orDash(m.Phone),
			orDash(m.LeadPhone()),
			yesNo(m.Active),
			yesNo(m.Training),
			yesNo(m.BrandedPacket),
			yesNo(m.HasTelegramBot()),
		})
	}
	return rows
}

// orDash отсутствующие данные выводятся прочерком
func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// generateExcel генерирует Excel файл
func (es *ExportService) generateExcel(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			es.logger.Warnf("Failed to close Excel file: %v", err)
		}
	}()

	sheetName := "Аптеки"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}

	// Записываем заголовки
	if err := writeExcelRow(f, sheetName, 1, exportHeaders); err != nil {
		return nil, err
	}

	// Записываем данные
	for rowIdx, row := range rows {
		if err := writeExcelRow(f, sheetName, rowIdx+2, row); err != nil {
			return nil, err
		}
	}

	// Добавляем автофильтр
	endCell, err := excelize.CoordinatesToCellName(len(exportHeaders), len(rows)+1)
	if err != nil {
		return nil, fmt.Errorf("ошибка вычисления диапазона: %w", err)
	}
	if err := f.AutoFilter(sheetName, "A1:"+endCell, []excelize.AutoFilterOptions{}); err != nil {
		return nil, fmt.Errorf("ошибка добавления автофильтра: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка записи Excel файла: %w", err)
	}
	return buf.Bytes(), nil
}

// writeExcelRow записывает значения в строку row (нумерация с 1)
func writeExcelRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("ошибка адреса ячейки: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("ошибка записи ячейки %s: %w", cell, err)
		}
	}
	return nil
}

// generatePDF генерирует PDF файл (упрощенная таблица)
func (es *ExportService) generatePDF(rows [][]string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if es.pdfFontPath != "" {
		family = "Unicode"
		pdf.AddUTF8Font(family, "", es.pdfFontPath)
		pdf.AddUTF8Font(family, "B", es.pdfFontPath)
		tr = func(s string) string { return s }
	}
	pdf.AddPage()
	pdf.SetFont(family, "B", 14)

	pdf.Cell(40, 10, tr("Аптеки"))
	pdf.Ln(12)

	pdf.SetFont(family, "", 7)
	widths := []float64{8, 18, 40, 55, 30, 24, 24, 14, 14, 18, 16}

	for i, header := range exportHeaders {
		pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for i, row := range rows {
		if i >= pdfMaxRows {
			pdf.Cell(40, 7, tr(fmt.Sprintf("... и еще %d записей", len(rows)-pdfMaxRows)))
			break
		}
		for col, value := range row {
			pdf.CellFormat(widths[col], 6, tr(truncate(value, int(widths[col]/1.6))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("ошибка генерации PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
