// Package pricing is the thin price-lookup collaborator: a product code in,
// a normalized pricing record or a not-found/invalid classification out.
package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/model"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrInvalidCode = errors.New("invalid code parameter")
)

var codePattern = regexp.MustCompile(`^[0-9]{1,20}$`)

// ValidateCode checks a scanned barcode before it goes anywhere near the DB.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidCode
	}
	return nil
}

// Open connects to the retail database, retrying briefly; the kiosk often
// boots before its infrastructure does.
func Open(databaseURL string) (*sqlx.DB, error) {
	const maxRetries = 10
	const retryInterval = 2 * time.Second
	var db *sqlx.DB
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			log.Info().Msg("connected to retail database")
			return db, nil
		}
		log.Error().Err(err).
			Int("attempt", attempt).
			Msgf("failed to connect to database, retrying in %s", retryInterval)
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

// rawProduct mirrors the JSON document produced by the price-lookup stored
// procedure. Codes arrive as bare numbers.
type rawProduct struct {
	Bloqueado      bool        `json:"Bloqueado"`
	CodBarra       json.Number `json:"CodBarra"`
	CodArticulo    json.Number `json:"CodArticulo"`
	Descripcion    string      `json:"Descripcion"`
	PrecioBase     float64     `json:"PrecioBase"`
	PctIva         float64     `json:"PctIva"`
	MontoIva       float64     `json:"MontoIva"`
	PrecioIva      float64     `json:"PrecioIva"`
	PrecioRef      float64     `json:"PrecioRef"`
	NomProm        string      `json:"NomProm"`
	PrecioBaseProm float64     `json:"PrecioBaseProm"`
	MontoIvaProm   float64     `json:"MontoIvaProm"`
	PrecioIVAProm  float64     `json:"PrecioIVAProm"`
	PrecioRefProm  float64     `json:"PrecioRefProm"`
	PorcDesc       float64     `json:"PorcDesc"`
	Tasa           float64     `json:"Tasa"`
	TasaEuro       float64     `json:"TasaEuro"`
}

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Lookup runs the price query and normalizes its JSON result.
func (s *Store) Lookup(ctx context.Context, code string) (*model.Product, error) {
	var payload []byte
	query := `SELECT price_lookup($1);`
	err := s.db.GetContext(ctx, &payload, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Msg("price lookup query failed")
		return nil, fmt.Errorf("price lookup: %w", err)
	}
	if len(payload) == 0 {
		return nil, ErrNotFound
	}

	var raw rawProduct
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.Error().Err(err).Msg("invalid product data structure")
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if raw.CodBarra == "" && raw.CodArticulo == "" {
		return nil, ErrNotFound
	}
	return Normalize(&raw), nil
}

// Normalize maps the stored-procedure document onto the kiosk's product
// shape. A promotion exists only when it is named and carries a positive
// discount; its savings are derived, not transmitted.
func Normalize(raw *rawProduct) *model.Product {
	product := &model.Product{
		IsBlocked:   raw.Bloqueado,
		BarCode:     raw.CodBarra.String(),
		ArticleCode: raw.CodArticulo.String(),
		Description: raw.Descripcion,
		Prices: model.Prices{
			Base:           raw.PrecioBase,
			Tax:            raw.PctIva,
			TaxAmount:      raw.MontoIva,
			PriceWithTax:   raw.PrecioIva,
			ReferencePrice: raw.PrecioRef,
		},
		Rate: model.Rates{
			Dollar: raw.Tasa,
			Euro:   raw.TasaEuro,
		},
	}
	if raw.NomProm != "" && raw.PorcDesc > 0 {
		product.Promotion = &model.Promotion{
			Name:               raw.NomProm,
			BasePrice:          raw.PrecioBaseProm,
			TaxAmount:          raw.MontoIvaProm,
			PriceWithTax:       raw.PrecioIVAProm,
			ReferencePrice:     raw.PrecioRefProm,
			Savings:            raw.PrecioIva - raw.PrecioIVAProm,
			DiscountPercentage: raw.PorcDesc,
		}
	}
	return product
}
