package characteristic

import (
	"errors"
	"fmt"
	"sort"
)

// ID — стабильный идентификатор характеристики.
// Значения сохранены в БД: нельзя менять или переиспользовать уже выданные номера.
type ID int16

const (
	CPUFrequency     ID = 1
	ScreenDiagonal   ID = 2
	Weight           ID = 3
	Thickness        ID = 4
	Width            ID = 5
	Height           ID = 6
	MainCamera       ID = 7
	FrontCamera      ID = 8
	OSVersion        ID = 9
	BluetoothVersion ID = 10

	BatteryCapacity  ID = 20
	RAM              ID = 21
	Storage          ID = 22
	CPUCores         ID = 23
	ScreenResolution ID = 24
	RefreshRate      ID = 25
	SimCount         ID = 26
	ChargingPower    ID = 27

	Model        ID = 40
	Processor    ID = 41
	Manufacturer ID = 42
	GPU          ID = 43

	Color             ID = 60
	ScreenType        ID = 61
	BatteryType       ID = 62
	SimType           ID = 63
	AudioCodecs       ID = 64
	ChargingConnector ID = 65
	NetworkStandards  ID = 66
	OperatingSystem   ID = 67
	Material          ID = 68

	NFC              ID = 80
	FastCharging     ID = 81
	WirelessCharging ID = 82
	GPS              ID = 83
	Wifi             ID = 84
	Fingerprint      ID = 85
	FaceUnlock       ID = 86
	WaterResistance  ID = 87
	Jack35           ID = 88
)

// allIDs перечисляет каждую объявленную константу ID. Новая характеристика
// добавляется сюда и в definitions одновременно, иначе Validate вернёт ошибку.
var allIDs = []ID{
	CPUFrequency, ScreenDiagonal, Weight, Thickness, Width, Height, MainCamera, FrontCamera, OSVersion, BluetoothVersion,
	BatteryCapacity, RAM, Storage, CPUCores, ScreenResolution, RefreshRate, SimCount, ChargingPower,
	Model, Processor, Manufacturer, GPU,
	Color, ScreenType, BatteryType, SimType, AudioCodecs, ChargingConnector, NetworkStandards, OperatingSystem, Material,
	NFC, FastCharging, WirelessCharging, GPS, Wifi, Fingerprint, FaceUnlock, WaterResistance, Jack35,
}

type Definition struct {
	ID            ID
	Slug          string
	Name          string
	Kind          Kind
	Visualisation Visualisation
	SortKey       int
	Group         Group
	Unit          string
	Multi         bool     // допускает несколько значений у одного товара
	Values        []string // допустимые значения для KindEnum
}

func num(id ID, slug, name string, kind Kind, group Group, unit string, sortKey int) Definition {
	return Definition{ID: id, Slug: slug, Name: name, Kind: kind, Visualisation: VisualisationRange, SortKey: sortKey, Group: group, Unit: unit}
}

func str(id ID, slug, name string, group Group, sortKey int) Definition {
	return Definition{ID: id, Slug: slug, Name: name, Kind: KindString, Visualisation: VisualisationText, SortKey: sortKey, Group: group}
}

func enum(id ID, slug, name string, group Group, sortKey int, multi bool, values ...string) Definition {
	return Definition{ID: id, Slug: slug, Name: name, Kind: KindEnum, Visualisation: VisualisationList, SortKey: sortKey, Group: group, Multi: multi, Values: values}
}

func flag(id ID, slug, name string, group Group, sortKey int) Definition {
	return Definition{ID: id, Slug: slug, Name: name, Kind: KindBool, Visualisation: VisualisationCheckbox, SortKey: sortKey, Group: group}
}

var definitions = []Definition{
	num(CPUFrequency, "cpu_frequency", "Частота процессора", KindFloat, GroupPlatform, "ГГц", 310),
	num(ScreenDiagonal, "screen_diagonal", "Диагональ экрана", KindFloat, GroupDisplay, "\"", 200),
	num(Weight, "weight", "Вес", KindFloat, GroupBody, "г", 800),
	num(Thickness, "thickness", "Толщина", KindFloat, GroupBody, "мм", 830),
	num(Width, "width", "Ширина", KindFloat, GroupBody, "мм", 810),
	num(Height, "height", "Высота", KindFloat, GroupBody, "мм", 820),
	num(MainCamera, "main_camera", "Основная камера", KindFloat, GroupCamera, "Мп", 500),
	num(FrontCamera, "front_camera", "Фронтальная камера", KindFloat, GroupCamera, "Мп", 510),
	num(OSVersion, "os_version", "Версия ОС", KindFloat, GroupPlatform, "", 110),
	num(BluetoothVersion, "bluetooth_version", "Версия Bluetooth", KindFloat, GroupConnectivity, "", 720),

	num(BatteryCapacity, "battery_capacity", "Ёмкость аккумулятора", KindInt, GroupBattery, "мА·ч", 600),
	num(RAM, "ram", "Оперативная память", KindInt, GroupMemory, "ГБ", 400),
	num(Storage, "storage", "Встроенная память", KindInt, GroupMemory, "ГБ", 410),
	num(CPUCores, "cpu_cores", "Количество ядер", KindInt, GroupPlatform, "", 320),
	num(ScreenResolution, "screen_resolution", "Разрешение экрана", KindInt, GroupDisplay, "px", 210),
	num(RefreshRate, "refresh_rate", "Частота обновления", KindInt, GroupDisplay, "Гц", 230),
	num(SimCount, "sim_count", "Количество SIM-карт", KindInt, GroupConnectivity, "", 700),
	num(ChargingPower, "charging_power", "Мощность зарядки", KindInt, GroupBattery, "Вт", 620),

	str(Model, "model", "Модель", GroupGeneral, 10),
	str(Processor, "processor", "Процессор", GroupPlatform, 300),
	str(Manufacturer, "manufacturer", "Производитель", GroupGeneral, 0),
	str(GPU, "gpu", "Графический процессор", GroupPlatform, 330),

	enum(Color, "color", "Цвет", GroupGeneral, 20, false,
		"black", "white", "blue", "green", "red", "purple", "yellow", "gray", "silver", "gold", "pink", "orange"),
	enum(ScreenType, "screen_type", "Тип экрана", GroupDisplay, 220, false,
		"AMOLED", "OLED", "IPS", "LCD", "TFT"),
	enum(BatteryType, "battery_type", "Тип аккумулятора", GroupBattery, 610, false,
		"Li-Ion", "Li-Pol"),
	enum(SimType, "sim_type", "Формат SIM-карты", GroupConnectivity, 710, true,
		"Nano-SIM", "Micro-SIM", "eSIM"),
	enum(AudioCodecs, "audio_codecs", "Аудиокодеки", GroupConnectivity, 760, true,
		"AAC", "eAAC+", "MP3", "FLAC", "WAV", "OGG", "LDAC", "aptX", "SBC"),
	enum(ChargingConnector, "charging_connector", "Разъём зарядки", GroupBattery, 630, false,
		"USB Type-C", "Micro-USB", "Lightning"),
	enum(NetworkStandards, "network_standards", "Стандарты связи", GroupConnectivity, 705, true,
		"2G", "3G", "4G", "5G"),
	enum(OperatingSystem, "operating_system", "Операционная система", GroupPlatform, 100, false,
		"Android", "iOS", "HarmonyOS", "HyperOS"),
	enum(Material, "material", "Материал корпуса", GroupBody, 840, true,
		"glass", "aluminum", "plastic", "ceramic", "leather", "steel", "titanium"),

	flag(NFC, "nfc", "NFC", GroupConnectivity, 730),
	flag(FastCharging, "fast_charging", "Быстрая зарядка", GroupBattery, 640),
	flag(WirelessCharging, "wireless_charging", "Беспроводная зарядка", GroupBattery, 650),
	flag(GPS, "gps", "GPS", GroupConnectivity, 740),
	flag(Wifi, "wifi", "Wi-Fi", GroupConnectivity, 750),
	flag(Fingerprint, "fingerprint", "Сканер отпечатка пальца", GroupBody, 850),
	flag(FaceUnlock, "face_unlock", "Разблокировка по лицу", GroupBody, 860),
	flag(WaterResistance, "water_resistance", "Влагозащита", GroupBody, 870),
	flag(Jack35, "jack_3_5", "Разъём 3.5 мм", GroupConnectivity, 770),
}

var byID map[ID]Definition

func init() {
	byID = make(map[ID]Definition, len(definitions))
	for _, d := range definitions {
		byID[d.ID] = d
	}
}

// Definitions возвращает копию таблицы характеристик, упорядоченную по SortKey.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortKey < out[j].SortKey })
	return out
}

func Lookup(id ID) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}

func (id ID) String() string {
	if d, ok := byID[id]; ok {
		return d.Slug
	}
	return fmt.Sprintf("characteristic(%d)", int16(id))
}

// Validate проверяет, что таблица определений покрывает все ID ровно по одному разу
// и что отображение ID <-> slug взаимно однозначно. Вызывается при старте воркера.
func Validate() error {
	return validate(allIDs, definitions)
}

func validate(ids []ID, defs []Definition) error {
	var errs []error

	declared := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := declared[id]; dup {
			errs = append(errs, fmt.Errorf("id %d declared twice", id))
		}
		declared[id] = struct{}{}
	}

	seenID := make(map[ID]string, len(defs))
	seenSlug := make(map[string]ID, len(defs))
	for _, d := range defs {
		if prev, dup := seenID[d.ID]; dup {
			errs = append(errs, fmt.Errorf("id %d used by %q and %q", d.ID, prev, d.Slug))
		}
		if prev, dup := seenSlug[d.Slug]; dup {
			errs = append(errs, fmt.Errorf("slug %q used by %d and %d", d.Slug, prev, d.ID))
		}
		seenID[d.ID] = d.Slug
		seenSlug[d.Slug] = d.ID

		if _, ok := declared[d.ID]; !ok {
			errs = append(errs, fmt.Errorf("definition %q has undeclared id %d", d.Slug, d.ID))
		}
		if d.Kind < KindFloat || d.Kind > KindBool {
			errs = append(errs, fmt.Errorf("definition %q has invalid kind %d", d.Slug, d.Kind))
		}
		if d.Kind == KindEnum && len(d.Values) == 0 {
			errs = append(errs, fmt.Errorf("enum %q has no values", d.Slug))
		}
		if d.Kind != KindEnum && d.Multi {
			errs = append(errs, fmt.Errorf("non-enum %q marked as multi", d.Slug))
		}
	}

	for _, id := range ids {
		if _, ok := seenID[id]; !ok {
			errs = append(errs, fmt.Errorf("id %d has no definition", id))
		}
	}

	return errors.Join(errs...)
}
