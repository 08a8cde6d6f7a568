package testing

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// ImportHeader is a complete tariff sheet header
var ImportHeader = []any{
	"Город", "Регион", "Категория", "Название", "Тип", "Цена", "Цена со скидкой",
	"Период скидки", "Процент скидки", "Скорость", "Каналы", "Мобильный интернет",
	"Минуты", "Особенности", "Хит",
}

// BuildWorkbook writes header and rows to the first sheet of a new xlsx file
func BuildWorkbook(header []any, rows ...[]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f.WriteToBuffer()
}

// ImportRow builds a row matching ImportHeader with only the required columns filled
func ImportRow(city, category, name, price string) []any {
	row := make([]any, len(ImportHeader))
	for i := range row {
		row[i] = ""
	}
	row[0], row[2], row[3], row[5] = city, category, name, price
	return row
}
