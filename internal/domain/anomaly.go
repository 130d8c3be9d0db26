package domain

// Level — важность аномалии, отправляемой в телеметрию.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Виды аномалий конвейера.
const (
	AnomalyUnknownCharacteristic = "unknown_characteristic"
	AnomalyUnparsableValue       = "unparsable_characteristic"
	AnomalyFetchFailed           = "fetch_failed"
	AnomalyNodeNotFound          = "node_not_found"
	AnomalyCardSkipped           = "listing_card_skipped"
	AnomalyPriceConflict         = "price_conflict"
	AnomalySiteUnavailable       = "site_unavailable"
	AnomalyImageRejected         = "image_rejected"
	AnomalyProductMissing        = "product_missing"
)

// Anomaly — сигнал, который не прерывает обработку, но должен быть замечен.
type Anomaly struct {
	Level   Level
	Kind    string
	Message string
	Fields  map[string]any
}
