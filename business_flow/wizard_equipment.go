package businessflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/utils"
)

// Equipment kinds
const (
	EquipmentRouter = "router"
	EquipmentTVBox  = "tv_box"
)

// maxEquipmentQty caps any single counter in the wizard
const maxEquipmentQty = 5

var (
	routerCatalog = []dto.EquipmentItem{
		{ID: "router-rent", Kind: EquipmentRouter, Name: "Wi-Fi роутер в аренду", Rental: 150},
		{ID: "router-buy", Kind: EquipmentRouter, Name: "Wi-Fi роутер в собственность", Purchase: 3490},
		{ID: "router-mesh-rent", Kind: EquipmentRouter, Name: "Mesh-система в аренду", Rental: 290},
	}
	tvBoxCatalog = []dto.EquipmentItem{
		{ID: "tvbox-rent", Kind: EquipmentTVBox, Name: "ТВ-приставка в аренду", Rental: 199},
		{ID: "tvbox-buy", Kind: EquipmentTVBox, Name: "ТВ-приставка 4K в собственность", Purchase: 5990},
	}
)

func equipmentByID(catalog []dto.EquipmentItem, id string) (dto.EquipmentItem, bool) {
	for _, item := range catalog {
		if item.ID == id {
			return item, true
		}
	}
	return dto.EquipmentItem{}, false
}

// categoryIncludesTV reports whether set-top boxes apply to a category
func categoryIncludesTV(category string) bool {
	return category == utils.CategoryInternetTV || category == utils.CategoryInternetTVMobile
}

// cleanQuantities drops zero counters; unknown ids and out-of-range counts are reported
func cleanQuantities(catalog []dto.EquipmentItem, in map[string]int) (map[string]int, string) {
	out := make(map[string]int, len(in))
	for id, qty := range in {
		if _, ok := equipmentByID(catalog, id); !ok {
			return nil, fmt.Sprintf("unknown equipment %q", id)
		}
		if qty < 0 || qty > maxEquipmentQty {
			return nil, fmt.Sprintf("quantity of %q must be between 0 and %d", id, maxEquipmentQty)
		}
		if qty > 0 {
			out[id] = qty
		}
	}
	if len(out) == 0 {
		return nil, ""
	}
	return out, ""
}

func totalQty(m map[string]int) int {
	sum := 0
	for _, qty := range m {
		sum += qty
	}
	return sum
}

// computeTotals adds equipment rental to the tariff's monthly price and sums purchases
func computeTotals(tariff *dto.Tariff, data dto.WizardData) dto.WizardTotals {
	var totals dto.WizardTotals
	if tariff != nil {
		totals.Monthly = EffectivePrice(*tariff)
	}
	add := func(catalog []dto.EquipmentItem, m map[string]int) {
		for id, qty := range m {
			if item, ok := equipmentByID(catalog, id); ok {
				totals.Monthly += item.Rental * qty
				totals.OneTime += item.Purchase * qty
			}
		}
	}
	add(routerCatalog, data.Routers)
	add(tvBoxCatalog, data.TVBoxes)
	return totals
}

// describeEquipment renders a selection for the lead comment, in catalog order
func describeEquipment(catalog []dto.EquipmentItem, m map[string]int, own bool, ownLabel string) string {
	if own {
		return ownLabel
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return catalogIndex(catalog, ids[i]) < catalogIndex(catalog, ids[j]) })

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		item, _ := equipmentByID(catalog, id)
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, m[id]))
	}
	if len(parts) == 0 {
		return "нет"
	}
	return strings.Join(parts, ", ")
}

func catalogIndex(catalog []dto.EquipmentItem, id string) int {
	for i, item := range catalog {
		if item.ID == id {
			return i
		}
	}
	return len(catalog)
}
