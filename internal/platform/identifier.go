package platform

type Kind string

const (
	KindASIN      Kind = "asin"
	KindShopeeIDs Kind = "shopee_ids"
	KindMLBID     Kind = "mlb_id"
	KindSKU       Kind = "sku"
)

// Identifier is a tagged product id. Exactly one field group is set, selected by Kind.
type Identifier struct {
	Kind   Kind   `json:"kind"`
	ASIN   string `json:"asin,omitempty"`
	ShopID string `json:"shop_id,omitempty"`
	ItemID string `json:"item_id,omitempty"`
	MLBID  string `json:"mlb_id,omitempty"`
	SKU    string `json:"sku,omitempty"`
}

// Value is the primary product id (the item id for Shopee).
func (id Identifier) Value() string {
	switch id.Kind {
	case KindASIN:
		return id.ASIN
	case KindShopeeIDs:
		return id.ItemID
	case KindMLBID:
		return id.MLBID
	case KindSKU:
		return id.SKU
	default:
		return ""
	}
}

// Platform reports which platform produces this kind of identifier.
func (id Identifier) Platform() Platform {
	switch id.Kind {
	case KindASIN:
		return Amazon
	case KindShopeeIDs:
		return Shopee
	case KindMLBID:
		return MercadoLivre
	case KindSKU:
		return Magalu
	default:
		return Unknown
	}
}
