package businessflow

import (
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/samber/lo"
)

// Sort modes accepted by FilterAndSort
const (
	SortPopular   = "popular"
	SortSpeed     = "speed"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// MaxRangeValue is the upper bound of an unbounded price or speed range
const MaxRangeValue = math.MaxInt32

var (
	// Type labels of the composite categories as entered by content managers
	categoryTypeLabels = map[string]string{
		utils.CategoryInternet:         "Интернет",
		utils.CategoryInternetTV:       "Интернет + ТВ",
		utils.CategoryInternetMobile:   "Интернет + Моб. связь",
		utils.CategoryInternetTVMobile: "Интернет + ТВ + Моб. связь",
	}

	bundleNameKeywords   = []string{"выгоды", "семейный", "игровой", "комбинированный", "тест-драйв"}
	cinemaKeywords       = []string{"кинотеатр", "кино", "фильм", "сериал", "wink", "okko", "ivi", "иви", "start", "premier", "амедиатека", "more.tv"}
	gameKeywords         = []string{"игров", "игра", "геймер", "game", "gaming", "steam", "wargaming"}
	promotionKeywords    = []string{"акция", "скидк", "выгод", "промо", "спецпредложение", "тест-драйв"}
	testDriveKeyword     = "тест-драйв"
	internetTypeFragment = "интернет"
	tvTypeFragment       = "тв"
	mobileTypeFragment   = "моб"
)

// DefaultFilterState returns a state with every toggle off and unbounded ranges
func DefaultFilterState() dto.FilterState {
	return dto.FilterState{
		PriceRange: dto.Range{0, MaxRangeValue},
		SpeedRange: dto.Range{0, MaxRangeValue},
	}
}

// IsCategoryID reports whether id is one of the four composite category ids
func IsCategoryID(id string) bool {
	_, ok := categoryTypeLabels[id]
	return ok
}

// CategoryTypeLabel returns the Russian type label used for a composite category
func CategoryTypeLabel(id string) string {
	return categoryTypeLabels[id]
}

// CategoryFromTypeLabel maps a free-text type label back to its category id
func CategoryFromTypeLabel(label string) (string, bool) {
	norm := normalizeTypeLabel(label)
	for id, l := range categoryTypeLabels {
		if normalizeTypeLabel(l) == norm {
			return id, true
		}
	}
	return "", false
}

// normalizeTypeLabel lower-cases, drops whitespace and folds ё into е
func normalizeTypeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		if r == 'ё' {
			r = 'е'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func containsAny(haystack string, keywords []string) bool {
	return lo.SomeBy(keywords, func(k string) bool { return strings.Contains(haystack, k) })
}

func tariffText(t dto.Tariff) string {
	parts := append([]string{t.Name}, t.Features...)
	return utils.NormalizeName(strings.Join(parts, " "))
}

func positive(v *int) bool { return v != nil && *v > 0 }

// SpeedOf returns the tariff speed or 0 when unknown
func SpeedOf(t dto.Tariff) int { return utils.Deref(t.Speed) }

// HasDiscount reports whether the tariff carries any discount field
func HasDiscount(t dto.Tariff) bool {
	if t.DiscountPrice != nil && *t.DiscountPrice >= 0 && *t.DiscountPrice < t.Price {
		return true
	}
	if t.DiscountPercentage != nil && *t.DiscountPercentage > 0 {
		return true
	}
	return t.DiscountPeriod != nil && strings.TrimSpace(*t.DiscountPeriod) != ""
}

// EffectivePrice is the discounted monthly price when a valid discount exists
func EffectivePrice(t dto.Tariff) int {
	if t.DiscountPrice != nil && *t.DiscountPrice >= 0 && *t.DiscountPrice <= t.Price {
		return *t.DiscountPrice
	}
	return t.Price
}

// InCategory tests whether a tariff belongs to a category id
func InCategory(t dto.Tariff, categoryID string) bool {
	typ := normalizeTypeLabel(t.Type)
	switch categoryID {
	case utils.CategoryAll:
		return true
	case utils.CategoryInternet, utils.CategoryInternetTV, utils.CategoryInternetMobile:
		return typ == normalizeTypeLabel(categoryTypeLabels[categoryID])
	case utils.CategoryInternetTVMobile:
		return inInternetTVMobile(t, typ)
	default:
		return false
	}
}

// inInternetTVMobile tries the field rule, then the label+keyword rule, then the test-drive rule
func inInternetTVMobile(t dto.Tariff, typ string) bool {
	hasMobile := positive(t.MobileData) || positive(t.MobileMinutes)
	if positive(t.Speed) && positive(t.TVChannels) && hasMobile {
		return true
	}

	name := utils.NormalizeName(t.Name)
	if typ == normalizeTypeLabel(categoryTypeLabels[utils.CategoryInternetTVMobile]) && containsAny(name, bundleNameKeywords) {
		return true
	}

	if !strings.Contains(name, testDriveKeyword) {
		return false
	}
	anyTV := strings.Contains(typ, tvTypeFragment) || positive(t.TVChannels)
	anyMobile := strings.Contains(typ, mobileTypeFragment) || hasMobile
	hasInternet := strings.Contains(typ, internetTypeFragment) || positive(t.Speed)
	return anyTV && anyMobile && hasInternet
}

func anySidebarToggle(f dto.FilterState) bool {
	return f.Internet || f.TV || f.Mobile || f.OnlineCinema || f.GameBonuses
}

// matchesSidebar is the OR of every enabled sidebar predicate
func matchesSidebar(t dto.Tariff, f dto.FilterState) bool {
	typ := normalizeTypeLabel(t.Type)
	text := tariffText(t)
	switch {
	case f.Internet && strings.Contains(typ, internetTypeFragment):
		return true
	case f.TV && strings.Contains(typ, tvTypeFragment):
		return true
	case f.Mobile && strings.Contains(typ, mobileTypeFragment):
		return true
	case f.OnlineCinema && containsAny(text, cinemaKeywords):
		return true
	case f.GameBonuses && containsAny(text, gameKeywords):
		return true
	}
	return false
}

func isPromotion(t dto.Tariff) bool {
	return HasDiscount(t) || containsAny(utils.NormalizeName(t.Name), promotionKeywords)
}

func matches(t dto.Tariff, f dto.FilterState, activeCategory string) bool {
	if !InCategory(t, activeCategory) {
		return false
	}
	if activeCategory == utils.CategoryAll && anySidebarToggle(f) && !matchesSidebar(t, f) {
		return false
	}
	if f.Promotions && !isPromotion(t) {
		return false
	}
	if f.HitsOnly && !t.IsHit {
		return false
	}
	if !f.PriceRange.Contains(t.Price) {
		return false
	}
	if speed := SpeedOf(t); speed > 0 && !f.SpeedRange.Contains(speed) {
		return false
	}
	return true
}

// FilterAndSort returns a new slice with the tariffs that pass the filters, ordered by sortBy.
// The input slice is left untouched.
func FilterAndSort(tariffs []dto.Tariff, filters dto.FilterState, activeCategory, sortBy string) []dto.Tariff {
	if activeCategory == "" {
		activeCategory = utils.CategoryAll
	}
	out := lo.Filter(tariffs, func(t dto.Tariff, _ int) bool {
		return matches(t, filters, activeCategory)
	})
	SortTariffs(out, sortBy)
	return out
}

// SortTariffs orders tariffs in place. Unknown modes keep the current order.
func SortTariffs(tariffs []dto.Tariff, sortBy string) {
	var less func(a, b dto.Tariff) bool
	switch sortBy {
	case SortPopular:
		less = func(a, b dto.Tariff) bool {
			if a.IsHit != b.IsHit {
				return a.IsHit
			}
			return SpeedOf(a) > SpeedOf(b)
		}
	case SortSpeed:
		less = func(a, b dto.Tariff) bool { return SpeedOf(a) > SpeedOf(b) }
	case SortPriceLow:
		less = func(a, b dto.Tariff) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b dto.Tariff) bool { return a.Price > b.Price }
	default:
		return
	}
	sort.SliceStable(tariffs, func(i, j int) bool { return less(tariffs[i], tariffs[j]) })
}

// IsSortMode reports whether s is a known sort mode
func IsSortMode(s string) bool {
	return slices.Contains([]string{SortPopular, SortSpeed, SortPriceLow, SortPriceHigh}, s)
}

// GetServiceFiltersForCategory expands a composite category into sidebar toggles
func GetServiceFiltersForCategory(categoryID string) dto.FilterState {
	f := DefaultFilterState()
	switch categoryID {
	case utils.CategoryInternet:
		f.Internet = true
	case utils.CategoryInternetTV:
		f.Internet, f.TV = true, true
	case utils.CategoryInternetMobile:
		f.Internet, f.Mobile = true, true
	case utils.CategoryInternetTVMobile:
		f.Internet, f.TV, f.Mobile = true, true, true
	}
	return f
}

// MapFiltersToCategory is the inverse of GetServiceFiltersForCategory.
// Combinations without a composite category map to "all".
func MapFiltersToCategory(f dto.FilterState) string {
	switch {
	case f.Internet && f.TV && f.Mobile:
		return utils.CategoryInternetTVMobile
	case f.Internet && f.TV:
		return utils.CategoryInternetTV
	case f.Internet && f.Mobile:
		return utils.CategoryInternetMobile
	case f.Internet:
		return utils.CategoryInternet
	default:
		return utils.CategoryAll
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

func parseRange(minRaw, maxRaw string, def dto.Range) dto.Range {
	r := def
	if v, err := strconv.Atoi(strings.TrimSpace(minRaw)); err == nil && v >= 0 {
		r[0] = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(maxRaw)); err == nil && v >= 0 {
		r[1] = v
	}
	if r[0] > r[1] {
		r[0], r[1] = r[1], r[0]
	}
	return r
}

// ParseFilterState seeds a filter state from query parameters. The "filter" parameter
// expands a composite category; explicit toggles override it.
func ParseFilterState(query map[string]string) dto.FilterState {
	f := DefaultFilterState()
	if id := strings.ToLower(strings.TrimSpace(query["filter"])); IsCategoryID(id) {
		f = GetServiceFiltersForCategory(id)
	}

	toggles := map[string]*bool{
		"internet":      &f.Internet,
		"tv":            &f.TV,
		"mobile":        &f.Mobile,
		"online_cinema": &f.OnlineCinema,
		"game_bonuses":  &f.GameBonuses,
		"promotions":    &f.Promotions,
		"hits_only":     &f.HitsOnly,
	}
	for key, dst := range toggles {
		if v, ok := parseBool(query[key]); ok {
			*dst = v
		}
	}

	f.PriceRange = parseRange(query["price_min"], query["price_max"], f.PriceRange)
	f.SpeedRange = parseRange(query["speed_min"], query["speed_max"], f.SpeedRange)
	return f
}

// PriceBounds returns the smallest and largest monthly price, or {0,0} for no tariffs
func PriceBounds(tariffs []dto.Tariff) dto.Range {
	if len(tariffs) == 0 {
		return dto.Range{0, 0}
	}
	lowest := lo.MinBy(tariffs, func(a, b dto.Tariff) bool { return a.Price < b.Price })
	highest := lo.MaxBy(tariffs, func(a, b dto.Tariff) bool { return a.Price > b.Price })
	return dto.Range{lowest.Price, highest.Price}
}

// SpeedBounds is PriceBounds over the tariffs with a known speed
func SpeedBounds(tariffs []dto.Tariff) dto.Range {
	speeds := lo.FilterMap(tariffs, func(t dto.Tariff, _ int) (int, bool) {
		s := SpeedOf(t)
		return s, s > 0
	})
	if len(speeds) == 0 {
		return dto.Range{0, 0}
	}
	return dto.Range{lo.Min(speeds), lo.Max(speeds)}
}

// CityTariffs flattens every service of a city into one list, keeping service order
// by category and dropping duplicates that appear in several services.
func CityTariffs(city dto.CityData) []dto.Tariff {
	var all []dto.Tariff
	seen := make(map[int]bool)
	keys := lo.Keys(city.Services)
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := categoryOrder(keys[i]), categoryOrder(keys[j])
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		for _, t := range city.Services[key].Tariffs {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			all = append(all, t)
		}
	}
	return all
}

func categoryOrder(id string) int {
	if i := slices.Index(utils.ServiceCategories, id); i >= 0 {
		return i
	}
	return len(utils.ServiceCategories)
}
