package businessflow

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet columns, matched case-insensitively
const (
	colCity           = "город"
	colRegion         = "регион"
	colCategory       = "категория"
	colName           = "название"
	colType           = "тип"
	colPrice          = "цена"
	colDiscountPrice  = "цена со скидкой"
	colDiscountPeriod = "период скидки"
	colDiscountPct    = "процент скидки"
	colSpeed          = "скорость"
	colChannels       = "каналы"
	colMobileData     = "мобильный интернет"
	colMinutes        = "минуты"
	colFeatures       = "особенности"
	colHit            = "хит"
)

var requiredImportColumns = []string{colCity, colCategory, colName, colPrice}

// currency and unit words removed before numeric parsing, longest first
var numericNoise = []string{"рублей", "руб.", "руб", "р.", "₽", "rub", "мбит/с", "мбит", "гб", "мин.", "мин", "шт."}

// ImportRow is one spreadsheet row resolved to its city and service
type ImportRow struct {
	Line     int
	CityName string
	CitySlug string
	Region   string
	Category string
	Tariff   dto.Tariff
}

// ParsedImport is the outcome of reading a workbook
type ParsedImport struct {
	Rows    []ImportRow
	Skipped []string
}

// ParseWorkbook reads the first sheet of an xlsx file
func ParseWorkbook(r io.Reader) (*ParsedImport, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "failed to open workbook", errors.Join(ErrImportFileInvalid, err))
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "workbook has no sheets", ErrImportFileInvalid)
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "failed to read sheet", errors.Join(ErrImportFileInvalid, err))
	}
	return ParseRows(rows)
}

// ParseRows converts a header row plus data rows into import rows
func ParseRows(rows [][]string) (*ParsedImport, error) {
	if len(rows) == 0 {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "sheet is empty", ErrImportFileInvalid)
	}

	colIndex := map[string]int{}
	for i, h := range rows[0] {
		key := utils.NormalizeName(strings.ReplaceAll(h, "\u00a0", " "))
		if _, seen := colIndex[key]; !seen && key != "" {
			colIndex[key] = i
		}
	}
	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, NewBusinessErrorf("IMPORT_FILE_INVALID", "missing columns: %s", ErrImportFileInvalid, strings.Join(missing, ", "))
	}

	out := &ParsedImport{}
	for i, rec := range rows[1:] {
		line := i + 2
		cell := func(col string) string {
			idx, ok := colIndex[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		if isBlankRecord(rec) {
			continue
		}
		row, problem := parseImportRow(line, cell)
		if problem != "" {
			out.Skipped = append(out.Skipped, fmt.Sprintf("row %d: %s", line, problem))
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseImportRow(line int, cell func(string) string) (ImportRow, string) {
	cityName := cell(colCity)
	if cityName == "" {
		return ImportRow{}, "empty city"
	}
	citySlug := utils.Slugify(cityName)
	if citySlug == "" {
		return ImportRow{}, fmt.Sprintf("city %q does not produce a slug", cityName)
	}

	rawCategory := cell(colCategory)
	if rawCategory == "" {
		return ImportRow{}, "empty category"
	}
	category := strings.ToLower(rawCategory)
	if !IsCategoryID(category) {
		id, ok := CategoryFromTypeLabel(rawCategory)
		if !ok {
			return ImportRow{}, fmt.Sprintf("unknown category %q", rawCategory)
		}
		category = id
	}

	name := cell(colName)
	if name == "" {
		return ImportRow{}, "empty tariff name"
	}

	price, ok := parseLenientInt(cell(colPrice))
	if !ok || price < 0 {
		return ImportRow{}, fmt.Sprintf("invalid price %q", cell(colPrice))
	}

	typ := cell(colType)
	if typ == "" {
		typ = CategoryTypeLabel(category)
	}

	t := dto.Tariff{
		Name:          name,
		Type:          typ,
		Price:         price,
		Speed:         optionalInt(cell(colSpeed)),
		TVChannels:    optionalInt(cell(colChannels)),
		MobileData:    optionalInt(cell(colMobileData)),
		MobileMinutes: optionalInt(cell(colMinutes)),
		Features:      splitFeatures(cell(colFeatures)),
		IsHit:         parseYes(cell(colHit)),
	}
	if period := cell(colDiscountPeriod); period != "" {
		t.DiscountPeriod = &period
	}
	applyDiscount(&t, cell(colDiscountPrice), cell(colDiscountPct))

	return ImportRow{
		Line:     line,
		CityName: cityName,
		CitySlug: citySlug,
		Region:   cell(colRegion),
		Category: category,
		Tariff:   t,
	}, ""
}

// applyDiscount resolves the discount columns. A percentage of 100 always means a free
// period; an empty discount price is derived from a partial percentage.
func applyDiscount(t *dto.Tariff, rawPrice, rawPct string) {
	pct, hasPct := parseDiscountPercentage(rawPct)
	if hasPct {
		t.DiscountPercentage = &pct
	}

	switch {
	case hasPct && pct >= 100:
		t.DiscountPrice = utils.ToPtr(0)
	case rawPrice != "":
		if v, ok := parseLenientInt(rawPrice); ok && v >= 0 {
			t.DiscountPrice = &v
		}
	case hasPct && pct > 0:
		t.DiscountPrice = utils.ToPtr(int(math.Round(float64(t.Price) * (100 - pct) / 100)))
	}
}

// parseDiscountPercentage reads "15%", "15", "0,15" or "0.15". Any value at or below 1 once the
// % sign is stripped is a fraction, so "1%" and "1" both mean 100.
func parseDiscountPercentage(raw string) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}
	v, ok := parseLenientFloat(raw)
	if !ok || v <= 0 {
		return 0, false
	}
	if v <= 1 {
		v *= 100
	}
	if v > 100 {
		v = 100
	}
	return math.Round(v*100) / 100, true
}

// parseLenientFloat accepts spaces, NBSP, currency words, % and a decimal comma
func parseLenientFloat(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, noise := range numericNoise {
		s = strings.ReplaceAll(s, noise, "")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ',' || r == '.':
			b.WriteRune('.')
		}
	}
	clean := strings.Trim(b.String(), ".")
	if strings.Count(clean, ".") > 1 {
		// thousands separators: keep the last dot as the decimal point
		last := strings.LastIndex(clean, ".")
		clean = strings.ReplaceAll(clean[:last], ".", "") + clean[last:]
	}
	if clean == "" || clean == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseLenientInt(raw string) (int, bool) {
	v, ok := parseLenientFloat(raw)
	if !ok {
		return 0, false
	}
	return int(math.Round(v)), true
}

func optionalInt(raw string) *int {
	if raw == "" {
		return nil
	}
	v, ok := parseLenientInt(raw)
	if !ok || v < 0 {
		return nil
	}
	return &v
}

func splitFeatures(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseYes(raw string) bool {
	switch utils.NormalizeName(raw) {
	case "да", "yes", "true", "1", "+", "хит", "x", "х":
		return true
	}
	return false
}
