package businessflow

import (
	"bytes"
	"testing"

	"github.com/amirphl/tariff-storefront/app/dto"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	header := []string{"Город", "Категория", "Название", "Цена", "Цена со скидкой", "Процент скидки", "Скорость", "Особенности", "ХИТ", "Регион"}
	rows := [][]string{
		header,
		{"г. Казань", "internet", "Базовый", "1 200 руб.", "", "0,15", "100 Мбит/с", "Wink; Игры|Кешбэк", "да", "Татарстан"},
		{"Москва", "Интернет + ТВ", "ТВ", "900", "", "100%"},
		{"Москва", "INTERNET", "Промо", "800", "500", "50"},
		{"", "internet", "Без города", "500"},
		{"", "", "  ", ""},
		{"Омск", "спутник", "Космос", "500"},
		{"Омск", "internet", "Даром", "бесплатно"},
		{"Омск", "internet", "Минус", "-5"},
	}

	parsed, err := ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 3)

	kazan := parsed.Rows[0]
	assert.Equal(t, 2, kazan.Line)
	assert.Equal(t, "kazan", kazan.CitySlug)
	assert.Equal(t, "Татарстан", kazan.Region)
	assert.Equal(t, utils.CategoryInternet, kazan.Category)
	assert.Equal(t, "Интернет", kazan.Tariff.Type)
	assert.Equal(t, 1200, kazan.Tariff.Price)
	assert.Equal(t, 15.0, utils.Deref(kazan.Tariff.DiscountPercentage))
	assert.Equal(t, 1020, utils.Deref(kazan.Tariff.DiscountPrice))
	assert.Equal(t, 100, utils.Deref(kazan.Tariff.Speed))
	assert.Equal(t, []string{"Wink", "Игры", "Кешбэк"}, kazan.Tariff.Features)
	assert.True(t, kazan.Tariff.IsHit)

	free := parsed.Rows[1]
	assert.Equal(t, utils.CategoryInternetTV, free.Category)
	assert.Equal(t, "Интернет + ТВ", free.Tariff.Type)
	assert.Equal(t, 0, utils.Deref(free.Tariff.DiscountPrice))
	assert.Equal(t, 100.0, utils.Deref(free.Tariff.DiscountPercentage))
	assert.Equal(t, []string{}, free.Tariff.Features)
	assert.False(t, free.Tariff.IsHit)

	promo := parsed.Rows[2]
	assert.Equal(t, utils.CategoryInternet, promo.Category)
	assert.Equal(t, 500, utils.Deref(promo.Tariff.DiscountPrice), "explicit discount price wins")

	assert.Equal(t, []string{
		"row 5: empty city",
		`row 7: unknown category "спутник"`,
		`row 8: invalid price "бесплатно"`,
		`row 9: invalid price "-5"`,
	}, parsed.Skipped)
}

func TestParseRows_Header(t *testing.T) {
	_, err := ParseRows(nil)
	assert.True(t, IsImportFileInvalid(err))

	_, err = ParseRows([][]string{{"Город", "Название"}})
	require.Error(t, err)
	assert.True(t, IsImportFileInvalid(err))
	assert.Contains(t, err.Error(), "категория")
	assert.Contains(t, err.Error(), "цена")
}

func TestParseWorkbook(t *testing.T) {
	row := testingutil.ImportRow("Казань", "internet", "Домашний", "650")
	row[9] = "300"
	buf, err := testingutil.BuildWorkbook(testingutil.ImportHeader, row)
	require.NoError(t, err)

	parsed, err := ParseWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, 650, parsed.Rows[0].Tariff.Price)
	assert.Equal(t, 300, utils.Deref(parsed.Rows[0].Tariff.Speed))

	_, err = ParseWorkbook(bytes.NewReader([]byte("not a zip")))
	assert.True(t, IsImportFileInvalid(err))
}

func TestParseLenientFloat(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{input: "1 234,50 ₽", expected: 1234.5, ok: true},
		{input: "3490 руб.", expected: 3490, ok: true},
		{input: "1.234.567,8", expected: 1234567.8, ok: true},
		{input: "12%", expected: 12, ok: true},
		{input: "500 Мбит/с", expected: 500, ok: true},
		{input: "abc"},
		{input: "-"},
		{input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, ok := parseLenientFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, v, 0.0001)
			}
		})
	}
}

func TestParseDiscountPercentage(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{input: "15%", expected: 15, ok: true},
		{input: "15", expected: 15, ok: true},
		{input: "0,15", expected: 15, ok: true},
		{input: "0.5%", expected: 50, ok: true},
		{input: "1%", expected: 100, ok: true},
		{input: "1", expected: 100, ok: true},
		{input: "1,5%", expected: 1.5, ok: true},
		{input: "150", expected: 100, ok: true},
		{input: "0"},
		{input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, ok := parseDiscountPercentage(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, v, 0.0001)
		})
	}
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name          string
		price         int
		rawPrice      string
		rawPct        string
		expectedPrice *int
	}{
		{name: "full discount forces zero", price: 900, rawPrice: "450", rawPct: "100", expectedPrice: utils.ToPtr(0)},
		{name: "derived from percentage", price: 999, rawPct: "10%", expectedPrice: utils.ToPtr(899)},
		{name: "explicit price wins", price: 1000, rawPrice: "700", rawPct: "50", expectedPrice: utils.ToPtr(700)},
		{name: "unparsable price ignored", price: 1000, rawPrice: "скоро"},
		{name: "nothing", price: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariff := dto.Tariff{Price: tt.price}
			applyDiscount(&tariff, tt.rawPrice, tt.rawPct)
			assert.Equal(t, tt.expectedPrice, tariff.DiscountPrice)
		})
	}
}

func TestParseYes(t *testing.T) {
	for _, v := range []string{"да", "Да", "YES", "true", "1", "+", "Хит", "x", "Х"} {
		assert.True(t, parseYes(v), v)
	}
	for _, v := range []string{"", "нет", "0", "no"} {
		assert.False(t, parseYes(v), v)
	}
}

func TestGroupRows(t *testing.T) {
	rows := []ImportRow{
		{CitySlug: "kazan", CityName: "Казань", Category: utils.CategoryInternet, Tariff: dto.Tariff{ID: 1}},
		{CitySlug: "moskva", CityName: "Москва", Region: "Москва", Category: utils.CategoryInternetTV, Tariff: dto.Tariff{ID: 2}},
		{CitySlug: "moskva", CityName: "Москва", Category: utils.CategoryInternet, Tariff: dto.Tariff{ID: 3}},
		{CitySlug: "kazan", CityName: "Казань", Region: "Татарстан", Category: utils.CategoryInternet, Tariff: dto.Tariff{ID: 4}},
	}

	cities := GroupRows(rows)
	require.Len(t, cities, 2)
	assert.Equal(t, "kazan", cities[0].Slug)
	assert.Equal(t, "Татарстан", cities[0].Meta.Region)
	assert.Equal(t, []int{1, 4}, ids(cities[0].Services[utils.CategoryInternet].Tariffs))
	assert.Equal(t, "Интернет", cities[0].Services[utils.CategoryInternet].Title)
	assert.Len(t, cities[1].Services, 2)
}

func TestAssignIDs(t *testing.T) {
	seq := []int{5, 5, 0, 7, 9}
	next := func() int {
		v := seq[0]
		seq = seq[1:]
		return v
	}
	rows := make([]ImportRow, 2)
	assignIDs(rows, map[int]bool{7: true}, next)
	assert.Equal(t, 5, rows[0].Tariff.ID)
	assert.Equal(t, 9, rows[1].Tariff.ID)
}
