package httpapi

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"medtest-data/internal/domain"
)

// PincodeExportHeader 可服务区域导出表头
var PincodeExportHeader = []string{
	"Pincode",
	"City",
	"State",
	"Serviceable",
	"Estimated Delivery (days)",
	"Collection Charges",
}

const pincodeSheetName = "Pincodes"

// GeneratePincodeExport 生成可服务区域 Excel 文件
// data 为空时只生成表头（可当导入模板用）
func GeneratePincodeExport(data []*domain.PincodeInfo) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	index, err := f.NewSheet(pincodeSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PincodeExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(pincodeSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(pincodeSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, info := range data {
		row := i + 2
		values := []any{
			info.Pincode,
			info.City,
			info.State,
			info.IsServiceable,
			info.EstimatedDelivery,
			info.CollectionCharges,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(pincodeSheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

// ParsePincodeImport 解析上传的区域表
// 第一行是表头；空行跳过；pincode 列为空的行跳过
func ParsePincodeImport(r io.Reader) ([]*domain.PincodeInfo, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	sheet := pincodeSheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		// 兼容用默认工作表名上传的文件
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	out := []*domain.PincodeInfo{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(cellAt(row, 0)) == "" {
			continue
		}
		info := &domain.PincodeInfo{
			Pincode:           strings.TrimSpace(cellAt(row, 0)),
			City:              strings.TrimSpace(cellAt(row, 1)),
			State:             strings.TrimSpace(cellAt(row, 2)),
			IsServiceable:     parseBoolCell(cellAt(row, 3)),
			EstimatedDelivery: parseIntCell(cellAt(row, 4)),
		}
		if charges, err := strconv.ParseFloat(strings.TrimSpace(cellAt(row, 5)), 64); err == nil {
			info.CollectionCharges = charges
		}
		out = append(out, info)
	}
	return out, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseBoolCell(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func parseIntCell(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}
