package model

// Product is the normalized price-lookup record shown on the kiosk.
type Product struct {
	IsBlocked   bool       `json:"isBlocked"`
	BarCode     string     `json:"barCode"`
	ArticleCode string     `json:"articleCode"`
	Description string     `json:"description"`
	Prices      Prices     `json:"prices"`
	Promotion   *Promotion `json:"promotion"`
	Rate        Rates      `json:"rate"`
}

type Prices struct {
	Base           float64 `json:"base"`
	Tax            float64 `json:"tax"`
	TaxAmount      float64 `json:"taxAmount"`
	PriceWithTax   float64 `json:"priceWithTax"`
	ReferencePrice float64 `json:"referencePrice"`
}

type Promotion struct {
	Name               string  `json:"name"`
	BasePrice          float64 `json:"basePrice"`
	TaxAmount          float64 `json:"taxAmount"`
	PriceWithTax       float64 `json:"priceWithTax"`
	ReferencePrice     float64 `json:"referencePrice"`
	Savings            float64 `json:"savings"`
	DiscountPercentage float64 `json:"discountPercentage"`
}

type Rates struct {
	Dollar float64 `json:"dollar,omitempty"`
	Euro   float64 `json:"euro,omitempty"`
}
