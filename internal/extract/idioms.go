package extract

import (
	"regexp"

	"github.com/DRSN-tech/market-crawler/internal/characteristic"
)

// idiom переписывает известные составные записи до разбиения на токены.
type idiom struct {
	re   *regexp.Regexp
	repl string
}

var idioms = []idiom{
	{regexp.MustCompile(`\baac\s*\+\s*eaac\+`), "aac, eaac+"},
	{regexp.MustCompile(`nano-sim\s*\+\s*e-?sim`), "nano-sim, esim"},
	{regexp.MustCompile(`802\.11(?:\s*[a-z0-9]+(?:/[a-z0-9]+)*)?`), ""},
	// списки частот и диапазонов после стандарта: "gsm 900/1800/1900", "lte b1/b3/b7"
	{regexp.MustCompile(`\b(gsm|umts|wcdma|cdma|lte|nr|[2-5]g)\s*:?\s*(?:[bn]?\d+\s*/\s*)+[bn]?\d+\b(?:\s*(?:мгц|mhz))?`), "$1"},
}

func applyIdioms(text string) string {
	for _, i := range idioms {
		text = i.re.ReplaceAllString(text, i.repl)
	}
	return text
}

// enumSynonyms отображает нормализованный токен в каноническое значение перечисления.
// Канонические значения в нижнем регистре добавляются автоматически.
var enumSynonyms = map[characteristic.ID]map[string]string{
	characteristic.Color: {
		"черный": "black", "чёрный": "black", "графитовый": "black", "graphite": "black", "midnight": "black", "obsidian": "black",
		"белый": "white",
		"синий": "blue", "голубой": "blue",
		"зеленый": "green", "зелёный": "green", "мятный": "green", "mint": "green",
		"красный":    "red",
		"фиолетовый": "purple", "пурпурный": "purple", "лавандовый": "purple", "lavender": "purple",
		"желтый": "yellow", "жёлтый": "yellow",
		"серый": "gray", "grey": "gray",
		"серебристый": "silver", "серебряный": "silver",
		"золотой": "gold", "золотистый": "gold",
		"розовый":   "pink",
		"оранжевый": "orange",
	},
	characteristic.ScreenType: {
		"poled": "OLED", "ips lcd": "IPS",
	},
	characteristic.BatteryType: {
		"литий-ионный": "Li-Ion", "li-polymer": "Li-Pol", "литий-полимерный": "Li-Pol", "lipo": "Li-Pol",
	},
	characteristic.SimType: {
		"nano sim": "Nano-SIM", "nanosim": "Nano-SIM", "micro sim": "Micro-SIM", "e-sim": "eSIM",
	},
	characteristic.AudioCodecs: {
		"he-aac": "eAAC+", "aptx hd": "aptX",
	},
	characteristic.ChargingConnector: {
		"type-c": "USB Type-C", "usb-c": "USB Type-C", "usb c": "USB Type-C",
		"microusb": "Micro-USB", "micro usb": "Micro-USB",
	},
	characteristic.NetworkStandards: {
		"gsm": "2G", "umts": "3G", "wcdma": "3G", "lte": "4G", "4g lte": "4G",
	},
	characteristic.OperatingSystem: {
		"miui": "Android",
	},
	characteristic.Material: {
		"стекло": "glass", "алюминий": "aluminum", "алюминиевый": "aluminum", "алюминиевая": "aluminum", "aluminium": "aluminum",
		"пластик": "plastic", "поликарбонат": "plastic", "керамика": "ceramic",
		"кожа": "leather", "экокожа": "leather", "сталь": "steel", "нержавеющая сталь": "steel", "титан": "titanium",
	},
}

// flagSynonyms — технологии, наличие которых записывается в Bool-характеристику.
var flagSynonyms = map[string]characteristic.ID{
	"nfc":   characteristic.NFC,
	"wi-fi": characteristic.Wifi,
	"wifi":  characteristic.Wifi,
	"wlan":  characteristic.Wifi,
	"gps":   characteristic.GPS,
	"a-gps": characteristic.GPS,
	"сканер отпечатка пальца":   characteristic.Fingerprint,
	"сканер отпечатков пальцев": characteristic.Fingerprint,
	"отпечаток пальца":          characteristic.Fingerprint,
	"fingerprint":               characteristic.Fingerprint,
	"fingerprint sensor":        characteristic.Fingerprint,
	"распознавание лица":        characteristic.FaceUnlock,
	"разблокировка по лицу":     characteristic.FaceUnlock,
	"face id":     characteristic.FaceUnlock,
	"face unlock": characteristic.FaceUnlock,
	"беспроводная зарядка": characteristic.WirelessCharging,
	"qi":                characteristic.WirelessCharging,
	"wireless charging": characteristic.WirelessCharging,
	"быстрая зарядка":   characteristic.FastCharging,
	"fast charging":     characteristic.FastCharging,
	"разъем 3.5 мм":     characteristic.Jack35,
	"разъём 3.5 мм":     characteristic.Jack35,
	"mini-jack 3.5":     characteristic.Jack35,
	"3.5 mm jack":       characteristic.Jack35,
	"3.5mm jack":        characteristic.Jack35,
}

// versionedFlags — технологии, у которых в списке указана версия.
var versionedFlags = map[string]characteristic.ID{
	"bluetooth": characteristic.BluetoothVersion,
}

var waterRatingRe = regexp.MustCompile(`^ip[x0-9]\d$`)

// ignoredTokens встречаются в списках технологий, но не моделируются.
var ignoredTokens = map[string]struct{}{
	"глонасс": {}, "glonass": {}, "galileo": {}, "beidou": {}, "qzss": {}, "navic": {},
	"акселерометр": {}, "гироскоп": {}, "компас": {}, "датчик приближения": {}, "датчик освещенности": {},
	"датчик освещённости": {}, "accelerometer": {}, "gyroscope": {}, "compass": {}, "proximity sensor": {},
	"ик-порт": {}, "ir": {}, "usb": {}, "otg": {}, "usb otg": {},
}

var (
	positiveWords = map[string]struct{}{
		"да": {}, "есть": {}, "yes": {}, "true": {}, "+": {}, "поддерживается": {}, "имеется": {}, "присутствует": {},
	}
	negativeWords = map[string]struct{}{
		"нет": {}, "no": {}, "false": {}, "-": {}, "отсутствует": {}, "не": {},
	}
)
