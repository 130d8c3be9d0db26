package extract

import (
	c "github.com/DRSN-tech/market-crawler/internal/characteristic"
)

// Locale — язык, на котором маркетплейс подписывает характеристики.
type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
)

// Stage задаёт порядок, в котором извлекатели забирают пары.
type Stage uint8

const (
	StageString Stage = iota + 1
	StageFloat
	StageInt
	StageEnum
	StageBool
	StageSkip
)

var stageOrder = []Stage{StageString, StageFloat, StageInt, StageEnum, StageBool, StageSkip}

var stageKind = map[Stage]c.Kind{
	StageString: c.KindString,
	StageFloat:  c.KindFloat,
	StageInt:    c.KindInt,
	StageEnum:   c.KindEnum,
	StageBool:   c.KindBool,
}

// Rule связывает подпись характеристики на сайте с целевой характеристикой.
// Target равен нулю для списков технологий и для пропускаемых подписей.
type Rule struct {
	Stage   Stage
	Label   string
	Locale  Locale
	Target  c.ID
	Extract Extractor
}

var (
	mhzToGhz = []unit{{"мгц", 1, 1000}, {"mhz", 1, 1000}}
	kgToG    = []unit{{"кг", 1000, 1}, {"kg", 1000, 1}}
	cmToMm   = []unit{{"см", 10, 1}, {"cm", 10, 1}}
	tbToGb   = []unit{{"тб", 1024, 1}, {"tb", 1024, 1}}
	mbToGb   = []unit{{"мб", 1, 1024}, {"mb", 1, 1024}}
)

func labels(stage Stage, target c.ID, ex Extractor, ru []string, en []string) []Rule {
	out := make([]Rule, 0, len(ru)+len(en))
	for _, l := range ru {
		out = append(out, Rule{Stage: stage, Label: l, Locale: LocaleRU, Target: target, Extract: ex})
	}
	for _, l := range en {
		out = append(out, Rule{Stage: stage, Label: l, Locale: LocaleEN, Target: target, Extract: ex})
	}
	return out
}

func skip(locale Locale, ls ...string) []Rule {
	out := make([]Rule, 0, len(ls))
	for _, l := range ls {
		out = append(out, Rule{Stage: StageSkip, Label: l, Locale: locale})
	}
	return out
}

func ru(ls ...string) []string { return ls }
func en(ls ...string) []string { return ls }

// DefaultRules — таблица (подпись, язык) -> (извлекатель, характеристика).
func DefaultRules() []Rule {
	var rules []Rule
	add := func(rs []Rule) { rules = append(rules, rs...) }

	add(labels(StageString, c.Model, stringOf(), ru("модель"), en("model")))
	add(labels(StageString, c.Processor, stringOf(), ru("процессор", "чипсет"), en("processor", "chipset", "cpu")))
	add(labels(StageString, c.Manufacturer, stringOf(), ru("производитель", "бренд"), en("manufacturer", "brand")))
	add(labels(StageString, c.GPU, stringOf(), ru("видеопроцессор", "графический процессор"), en("gpu")))

	add(labels(StageFloat, c.CPUFrequency, floatOf(mhzToGhz...), ru("частота процессора", "частота", "тактовая частота"), en("cpu frequency", "clock speed")))
	add(labels(StageFloat, c.ScreenDiagonal, floatOf(), ru("диагональ", "диагональ экрана"), en("screen size", "display size")))
	add(labels(StageFloat, c.Weight, floatOf(kgToG...), ru("вес"), en("weight")))
	add(labels(StageFloat, c.Thickness, floatOf(cmToMm...), ru("толщина"), en("thickness", "depth")))
	add(labels(StageFloat, c.Width, floatOf(cmToMm...), ru("ширина"), en("width")))
	add(labels(StageFloat, c.Height, floatOf(cmToMm...), ru("высота"), en("height")))
	add(labels(StageFloat, c.MainCamera, floatOf(), ru("основная камера", "тыловая камера", "разрешение основной камеры"), en("main camera", "rear camera")))
	add(labels(StageFloat, c.FrontCamera, floatOf(), ru("фронтальная камера", "разрешение фронтальной камеры"), en("front camera", "selfie camera")))
	add(labels(StageFloat, c.OSVersion, floatOf(), ru("версия ос", "версия операционной системы"), en("os version")))
	add(labels(StageFloat, c.BluetoothVersion, floatOf(), ru("версия bluetooth", "bluetooth"), en("bluetooth version")))

	add(labels(StageInt, c.BatteryCapacity, intOf(), ru("емкость аккумулятора", "ёмкость аккумулятора", "емкость батареи"), en("battery capacity", "battery")))
	add(labels(StageInt, c.RAM, intOf(append(tbToGb, mbToGb...)...), ru("оперативная память", "объем оперативной памяти", "озу"), en("ram", "memory")))
	add(labels(StageInt, c.Storage, intOf(append(tbToGb, mbToGb...)...), ru("встроенная память", "объем встроенной памяти", "пзу"), en("storage", "internal storage")))
	add(labels(StageInt, c.CPUCores, intOf(), ru("количество ядер", "число ядер"), en("cpu cores", "number of cores")))
	add(labels(StageInt, c.ScreenResolution, intOf(), ru("разрешение экрана", "разрешение"), en("resolution", "screen resolution")))
	add(labels(StageInt, c.RefreshRate, intOf(), ru("частота обновления экрана", "частота обновления"), en("refresh rate")))
	add(labels(StageInt, c.SimCount, intOf(), ru("количество sim-карт", "количество sim"), en("number of sim cards", "sim count")))
	add(labels(StageInt, c.ChargingPower, intOf(), ru("мощность зарядки", "мощность зарядного устройства"), en("charging power")))

	add(labels(StageEnum, c.Color, enumOf(), ru("цвет"), en("color", "colour")))
	add(labels(StageEnum, c.ScreenType, enumOf(), ru("тип экрана", "тип матрицы"), en("display type", "screen type")))
	add(labels(StageEnum, c.BatteryType, enumOf(), ru("тип аккумулятора"), en("battery type")))
	add(labels(StageEnum, c.SimType, enumOf(), ru("тип sim-карты", "формат sim-карты", "формат sim"), en("sim type")))
	add(labels(StageEnum, c.AudioCodecs, enumOf(), ru("аудиокодеки", "поддержка аудиоформатов", "аудиоформаты"), en("audio codecs", "audio formats")))
	add(labels(StageEnum, c.ChargingConnector, enumOf(), ru("разъем зарядки", "разъём зарядки", "разъем"), en("charging port", "connector")))
	add(labels(StageEnum, c.NetworkStandards, enumOf(), ru("стандарты связи", "стандарт связи", "сети"), en("network", "network standards")))
	add(labels(StageEnum, c.OperatingSystem, enumWithVersion(c.OSVersion), ru("операционная система", "ос"), en("operating system", "os")))
	add(labels(StageEnum, c.Material, enumOf(), ru("материал корпуса", "материал"), en("material", "body material")))

	add(labels(StageBool, c.NFC, boolOf(false), ru("nfc", "модуль nfc"), nil))
	add(labels(StageBool, c.FastCharging, boolOf(true), ru("быстрая зарядка"), en("fast charging")))
	add(labels(StageBool, c.WirelessCharging, boolOf(true), ru("беспроводная зарядка"), en("wireless charging")))
	add(labels(StageBool, c.GPS, boolOf(false), ru("gps"), nil))
	add(labels(StageBool, c.Wifi, boolOf(true), ru("wi-fi"), en("wifi")))
	add(labels(StageBool, c.Fingerprint, boolOf(true), ru("сканер отпечатка пальца", "сканер отпечатков"), en("fingerprint sensor")))
	add(labels(StageBool, c.FaceUnlock, boolOf(false), ru("разблокировка по лицу", "распознавание лица"), en("face unlock")))
	add(labels(StageBool, c.WaterResistance, boolOf(true), ru("влагозащита", "защита от воды"), en("water resistance", "ip rating")))
	add(labels(StageBool, c.Jack35, boolOf(false), ru("разъем 3.5 мм", "разъём 3.5 мм", "аудиоразъем 3.5 мм"), en("3.5 mm jack", "headphone jack")))
	add(labels(StageBool, 0, flagList(),
		ru("беспроводные интерфейсы", "беспроводные технологии", "интерфейсы", "датчики", "навигация", "технологии"),
		en("connectivity", "sensors", "navigation", "technologies")))

	add(skip(LocaleRU, "гарантия", "комплектация", "артикул", "код товара", "страна производства",
		"тип", "серия", "год выпуска", "размеры", "габариты"))
	add(skip(LocaleEN, "warranty", "package contents", "sku", "country of origin", "type", "series", "release year", "dimensions"))

	return rules
}
