package characteristic

// Kind — тип значения характеристики.
type Kind uint8

const (
	KindFloat Kind = iota + 1
	KindInt
	KindString
	KindEnum
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Interned сообщает, хранятся ли значения этого типа в таблице значений.
// Int и Bool используют само число как идентификатор значения.
func (k Kind) Interned() bool {
	return k == KindFloat || k == KindString || k == KindEnum
}

// Visualisation — подсказка клиенту, каким фильтром показывать характеристику.
type Visualisation string

const (
	VisualisationRange    Visualisation = "range"
	VisualisationList     Visualisation = "list"
	VisualisationCheckbox Visualisation = "checkbox"
	VisualisationText     Visualisation = "text"
)

// Group — раздел карточки товара, к которому относится характеристика.
type Group string

const (
	GroupGeneral      Group = "general"
	GroupDisplay      Group = "display"
	GroupPlatform     Group = "platform"
	GroupMemory       Group = "memory"
	GroupCamera       Group = "camera"
	GroupBattery      Group = "battery"
	GroupConnectivity Group = "connectivity"
	GroupBody         Group = "body"
)
