package testing

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/utils"
)

// Tariff ids of the sample catalog
const (
	TariffHome100     = 101
	TariffHome500     = 102
	TariffHiddenHome  = 103
	TariffTVBase      = 201
	TariffTVMax       = 202
	TariffMobileStart = 301
	TariffAllInOne    = 401
	TariffFamily      = 402
	TariffKazanHome   = 501
)

func tariff(id int, name, typ string, price int) dto.Tariff {
	return dto.Tariff{ID: id, Name: name, Type: typ, Price: price, Features: []string{}}
}

// SampleCatalog returns two cities covering every category, with one hidden tariff in Moscow
func SampleCatalog() []dto.CityData {
	home100 := tariff(TariffHome100, "Домашний 100", "Интернет", 600)
	home100.Speed = utils.ToPtr(100)
	home100.IsHit = true

	home500 := tariff(TariffHome500, "Домашний 500", "Интернет", 900)
	home500.Speed = utils.ToPtr(500)
	home500.DiscountPrice = utils.ToPtr(450)
	home500.DiscountPeriod = utils.ToPtr("2 месяца")

	hidden := tariff(TariffHiddenHome, "Архивный", "Интернет", 300)
	hidden.Speed = utils.ToPtr(50)
	hidden.Hidden = true

	tvBase := tariff(TariffTVBase, "ТВ Базовый", "Интернет + ТВ", 850)
	tvBase.Speed = utils.ToPtr(300)
	tvBase.TVChannels = utils.ToPtr(150)

	tvMax := tariff(TariffTVMax, "ТВ Максимум", "Интернет + ТВ", 1200)
	tvMax.Speed = utils.ToPtr(1000)
	tvMax.TVChannels = utils.ToPtr(250)
	tvMax.DiscountPercentage = utils.ToPtr(25.0)
	tvMax.DiscountPrice = utils.ToPtr(900)
	tvMax.Features = []string{"Онлайн-кинотеатр Wink"}

	mobile := tariff(TariffMobileStart, "Старт", "Интернет + Моб. связь", 700)
	mobile.Speed = utils.ToPtr(200)
	mobile.MobileData = utils.ToPtr(20)
	mobile.MobileMinutes = utils.ToPtr(500)

	allInOne := tariff(TariffAllInOne, "Всё в одном", "Интернет + ТВ + Моб. связь", 1500)
	allInOne.Speed = utils.ToPtr(500)
	allInOne.TVChannels = utils.ToPtr(200)
	allInOne.MobileData = utils.ToPtr(30)
	allInOne.IsHit = true

	family := tariff(TariffFamily, "Семейный", "Интернет + ТВ + Моб. связь", 1300)
	family.Speed = utils.ToPtr(300)
	family.TVChannels = utils.ToPtr(180)
	family.MobileMinutes = utils.ToPtr(300)
	family.DiscountPrice = utils.ToPtr(1100)

	kazanHome := tariff(TariffKazanHome, "Казанский", "Интернет", 500)
	kazanHome.Speed = utils.ToPtr(200)

	return []dto.CityData{
		{
			Slug: "moskva",
			Meta: dto.CityMeta{Name: "Москва", Region: "Москва", Timezone: "Europe/Moscow"},
			Services: map[string]dto.Service{
				utils.CategoryInternet: {
					ID: utils.CategoryInternet, Title: "Домашний интернет",
					Meta:    dto.ServiceMeta{Title: "Интернет в Москве", Description: "Подключить домашний интернет"},
					Tariffs: []dto.Tariff{home100, home500, hidden},
				},
				utils.CategoryInternetTV: {
					ID: utils.CategoryInternetTV, Title: "Интернет и ТВ",
					Tariffs: []dto.Tariff{tvBase, tvMax},
				},
				utils.CategoryInternetMobile: {
					ID: utils.CategoryInternetMobile, Title: "Интернет и мобильная связь",
					Tariffs: []dto.Tariff{mobile},
				},
				utils.CategoryInternetTVMobile: {
					ID: utils.CategoryInternetTVMobile, Title: "Всё вместе",
					Tariffs: []dto.Tariff{allInOne, family},
				},
			},
		},
		{
			Slug: "kazan",
			Meta: dto.CityMeta{Name: "Казань", Region: "Татарстан", Timezone: "Europe/Moscow"},
			Services: map[string]dto.Service{
				utils.CategoryInternet: {
					ID: utils.CategoryInternet, Title: "Домашний интернет",
					Tariffs: []dto.Tariff{kazanHome},
				},
			},
		},
	}
}

// SampleRegions is a small region directory
func SampleRegions() []dto.Region {
	return []dto.Region{
		{Letter: "К", Areas: []dto.Area{{ID: "16", Name: "Республика Татарстан", Cities: []string{"Казань", "Набережные Челны"}}}},
		{Letter: "М", Areas: []dto.Area{{ID: "77", Name: "Москва", Cities: []string{"Москва"}}}},
		{Letter: "О", Areas: []dto.Area{{ID: "55", Name: "Омская область", Cities: []string{"Омск", "Тара"}}}},
		{Letter: "С", Areas: []dto.Area{{ID: "66", Name: "Свердловская область", Cities: []string{"Екатеринбург", "Берёзовский"}}}},
	}
}
