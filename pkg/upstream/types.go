package upstream

// envelope is the standard Pokémon TCG API response wrapper.
type envelope[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Count      int `json:"count"`
	TotalCount int `json:"totalCount"`
}

// SetImages holds the set symbol and logo URLs.
type SetImages struct {
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

// Set is a card set as returned by the upstream API.
type Set struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Series       string    `json:"series"`
	PrintedTotal int       `json:"printedTotal"`
	Total        int       `json:"total"`
	ReleaseDate  string    `json:"releaseDate"`
	Images       SetImages `json:"images"`
}

// CardImages holds the card artwork URLs.
type CardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// Legalities holds per-format legality flags.
type Legalities struct {
	Standard  string `json:"standard"`
	Expanded  string `json:"expanded"`
	Unlimited string `json:"unlimited"`
}

// CardmarketPrices is the nested CardMarket price object. All fields are
// optional; the API omits components it has no data for.
type CardmarketPrices struct {
	AverageSellPrice *float64 `json:"averageSellPrice"`
	LowPrice         *float64 `json:"lowPrice"`
	TrendPrice       *float64 `json:"trendPrice"`
	ReverseHoloSell  *float64 `json:"reverseHoloSell"`
	ReverseHoloLow   *float64 `json:"reverseHoloLow"`
	ReverseHoloTrend *float64 `json:"reverseHoloTrend"`
	Avg1             *float64 `json:"avg1"`
	Avg7             *float64 `json:"avg7"`
	Avg30            *float64 `json:"avg30"`
}

// Cardmarket is the CardMarket pricing attachment on a card.
type Cardmarket struct {
	URL       string           `json:"url"`
	UpdatedAt string           `json:"updatedAt"`
	Prices    CardmarketPrices `json:"prices"`
}

// TCGPlayerVariant is one printing variant's TCGPlayer price set.
type TCGPlayerVariant struct {
	Low       *float64 `json:"low"`
	Mid       *float64 `json:"mid"`
	High      *float64 `json:"high"`
	Market    *float64 `json:"market"`
	DirectLow *float64 `json:"directLow"`
}

// TCGPlayer is the TCGPlayer pricing attachment on a card, keyed by the
// printing variants the card was sold in.
type TCGPlayer struct {
	URL       string                      `json:"url"`
	UpdatedAt string                      `json:"updatedAt"`
	Prices    map[string]TCGPlayerVariant `json:"prices"`
}

// Card is a card as returned by the upstream API. Pricing attachments are
// independently optional.
type Card struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Number     string      `json:"number"`
	Rarity     string      `json:"rarity"`
	Supertype  string      `json:"supertype"`
	Types      []string    `json:"types"`
	Images     CardImages  `json:"images"`
	Legalities Legalities  `json:"legalities"`
	Set        *Set        `json:"set"`
	Cardmarket *Cardmarket `json:"cardmarket"`
	TCGPlayer  *TCGPlayer  `json:"tcgplayer"`
}
