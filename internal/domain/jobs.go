package domain

// Сообщения очередей конвейера. Формат полезной нагрузки — JSON.

type CategoryJob struct {
	Source   Source `json:"source"`
	Category string `json:"category"`
}

type PageJob struct {
	URL      string `json:"url"`
	Source   Source `json:"source"`
	Category string `json:"category"`
}

type DetailsJob struct {
	ExternalID string `json:"external_id"`
	Source     Source `json:"source"`
	ProductID  int64  `json:"product_id"`
}

type ImageJob struct {
	FilePath   string `json:"file_path"`
	ImageURL   string `json:"image_url"`
	ExternalID string `json:"external_id"`
	Source     Source `json:"source"`
}

// ExchangeRateJob не несёт данных, это только сигнал на обновление курсов.
type ExchangeRateJob struct{}
