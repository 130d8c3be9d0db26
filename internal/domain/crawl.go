package domain

import "github.com/shopspring/decimal"

// LocalProduct — нормализованная запись карточки товара со страницы листинга.
type LocalProduct struct {
	ExternalID    string
	Title         string
	URL           string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Available     bool
	Description   string
	Images        []string
}

// RawCharacteristic — пара «название/значение» из таблицы характеристик страницы товара.
type RawCharacteristic struct {
	Label string
	Value string
}

// AdditionalInfo — данные, извлечённые со страницы товара.
type AdditionalInfo struct {
	Description     string
	Images          []string
	Available       *bool
	Characteristics []RawCharacteristic
}
