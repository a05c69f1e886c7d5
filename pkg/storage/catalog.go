package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tcgvault/tcgvault/pkg/catalog"
)

const chTimeLayout = "2006-01-02 15:04:05"

// CatalogStore is the storage surface the sync and pricing layers depend on.
type CatalogStore interface {
	// UpsertSets writes set records; newer rows supersede older ones.
	UpsertSets(ctx context.Context, sets []catalog.SetRecord) error
	// UpsertCards writes card records; newer rows supersede older ones.
	UpsertCards(ctx context.Context, cards []catalog.CardRecord) error
	// RecentSets returns sets ordered most recently released first, capped
	// at limit when limit is positive.
	RecentSets(ctx context.Context, limit int) ([]catalog.SetRecord, error)
	// CardsBySet returns all stored cards for a set.
	CardsBySet(ctx context.Context, setID string) ([]catalog.CardRecord, error)
	// GetCard returns a card by id, or (nil, nil) when absent.
	GetCard(ctx context.Context, id string) (*catalog.CardRecord, error)
	// InsertSnapshots appends price snapshots.
	InsertSnapshots(ctx context.Context, snapshots []catalog.PriceSnapshot) error
	// SnapshotsSince returns snapshots for a card/variant captured at or
	// after since, ordered by capture time ascending.
	SnapshotsSince(ctx context.Context, cardID, variant string, since time.Time) ([]catalog.PriceSnapshot, error)
	// Counts returns the number of stored sets and cards.
	Counts(ctx context.Context) (sets, cards uint64, err error)
}

// catalogStore implements CatalogStore over the ClickHouse client
type catalogStore struct {
	client   ClientInterface
	database string
	log      logrus.FieldLogger
}

// NewCatalogStore creates a catalog store bound to the configured database
func NewCatalogStore(log logrus.FieldLogger, client ClientInterface, database string) CatalogStore {
	return &catalogStore{
		client:   client,
		database: database,
		log:      log.WithField("component", "storage.catalog"),
	}
}

// setRow is the wire shape of a sets table row.
type setRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	ReleaseDate string `json:"release_date"`
	Total       uint32 `json:"total"`
	SymbolURL   string `json:"symbol_url"`
	LogoURL     string `json:"logo_url"`
	UpdatedAt   string `json:"updated_at"`
}

// cardRow is the wire shape of a cards table row. Pricing sub-structures are
// stored as JSON strings so a pricing-only merge rewrites just those columns.
type cardRow struct {
	ID             string   `json:"id"`
	SetID          string   `json:"set_id"`
	Name           string   `json:"name"`
	Number         string   `json:"number"`
	Rarity         string   `json:"rarity"`
	Supertype      string   `json:"supertype"`
	Types          []string `json:"types"`
	ImageSmall     string   `json:"image_small"`
	ImageLarge     string   `json:"image_large"`
	LegalStandard  string   `json:"legal_standard"`
	LegalExpanded  string   `json:"legal_expanded"`
	LegalUnlimited string   `json:"legal_unlimited"`
	Cardmarket     string   `json:"cardmarket"`
	TCGPlayer      string   `json:"tcgplayer"`
	UpdatedAt      string   `json:"updated_at"`
}

// snapshotRow is the wire shape of a price_snapshots table row.
type snapshotRow struct {
	CardID     string   `json:"card_id"`
	Variant    string   `json:"variant"`
	Source     string   `json:"source"`
	Price      float64  `json:"price"`
	Low        *float64 `json:"low"`
	Mid        *float64 `json:"mid"`
	Trend      *float64 `json:"trend"`
	CapturedAt string   `json:"captured_at"`
}

func (s *catalogStore) UpsertSets(ctx context.Context, sets []catalog.SetRecord) error {
	rows := make([]setRow, 0, len(sets))
	for i := range sets {
		rows = append(rows, toSetRow(&sets[i]))
	}

	return s.client.BulkInsert(ctx, s.table("sets"), rows)
}

func (s *catalogStore) UpsertCards(ctx context.Context, cards []catalog.CardRecord) error {
	rows := make([]cardRow, 0, len(cards))
	for i := range cards {
		row, err := toCardRow(&cards[i])
		if err != nil {
			return err
		}

		rows = append(rows, row)
	}

	return s.client.BulkInsert(ctx, s.table("cards"), rows)
}

func (s *catalogStore) RecentSets(ctx context.Context, limit int) ([]catalog.SetRecord, error) {
	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT id, name, series, release_date, total, symbol_url, logo_url
		FROM %s FINAL
		ORDER BY release_date DESC
		%s
	`, s.table("sets"), limitClause)

	var rows []setRow
	if err := s.client.QueryMany(ctx, query, &rows); err != nil {
		return nil, err
	}

	sets := make([]catalog.SetRecord, 0, len(rows))
	for i := range rows {
		sets = append(sets, fromSetRow(&rows[i]))
	}

	return sets, nil
}

func (s *catalogStore) CardsBySet(ctx context.Context, setID string) ([]catalog.CardRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, set_id, name, number, rarity, supertype, types,
		       image_small, image_large,
		       legal_standard, legal_expanded, legal_unlimited,
		       cardmarket, tcgplayer
		FROM %s FINAL
		WHERE set_id = '%s'
		ORDER BY id
	`, s.table("cards"), escapeString(setID))

	return s.queryCards(ctx, query)
}

func (s *catalogStore) GetCard(ctx context.Context, id string) (*catalog.CardRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, set_id, name, number, rarity, supertype, types,
		       image_small, image_large,
		       legal_standard, legal_expanded, legal_unlimited,
		       cardmarket, tcgplayer
		FROM %s FINAL
		WHERE id = '%s'
		LIMIT 1
	`, s.table("cards"), escapeString(id))

	cards, err := s.queryCards(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(cards) == 0 {
		return nil, nil
	}

	return &cards[0], nil
}

func (s *catalogStore) InsertSnapshots(ctx context.Context, snapshots []catalog.PriceSnapshot) error {
	rows := make([]snapshotRow, 0, len(snapshots))
	for i := range snapshots {
		snap := &snapshots[i]
		rows = append(rows, snapshotRow{
			CardID:     snap.CardID,
			Variant:    snap.Variant,
			Source:     snap.Source,
			Price:      snap.Price,
			Low:        snap.Low,
			Mid:        snap.Mid,
			Trend:      snap.Trend,
			CapturedAt: snap.CapturedAt.UTC().Format(chTimeLayout),
		})
	}

	return s.client.BulkInsert(ctx, s.table("price_snapshots"), rows)
}

func (s *catalogStore) SnapshotsSince(ctx context.Context, cardID, variant string, since time.Time) ([]catalog.PriceSnapshot, error) {
	variantClause := ""
	if variant != "" {
		variantClause = fmt.Sprintf("AND variant = '%s'", escapeString(variant))
	}

	query := fmt.Sprintf(`
		SELECT card_id, variant, source, price, low, mid, trend, captured_at
		FROM %s
		WHERE card_id = '%s' %s AND captured_at >= toDateTime('%s')
		ORDER BY captured_at ASC
	`, s.table("price_snapshots"), escapeString(cardID), variantClause, since.UTC().Format(chTimeLayout))

	var rows []snapshotRow
	if err := s.client.QueryMany(ctx, query, &rows); err != nil {
		return nil, err
	}

	snapshots := make([]catalog.PriceSnapshot, 0, len(rows))

	for i := range rows {
		row := &rows[i]

		capturedAt, err := time.Parse(chTimeLayout, row.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse captured_at %q: %w", row.CapturedAt, err)
		}

		snapshots = append(snapshots, catalog.PriceSnapshot{
			CardID:     row.CardID,
			Variant:    row.Variant,
			Source:     row.Source,
			Price:      row.Price,
			Low:        row.Low,
			Mid:        row.Mid,
			Trend:      row.Trend,
			CapturedAt: capturedAt.UTC(),
		})
	}

	return snapshots, nil
}

func (s *catalogStore) Counts(ctx context.Context) (uint64, uint64, error) {
	var sets, cards uint64

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.countRows(ctx, "sets")
		sets = n

		return err
	})

	g.Go(func() error {
		n, err := s.countRows(ctx, "cards")
		cards = n

		return err
	})

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	return sets, cards, nil
}

func (s *catalogStore) countRows(ctx context.Context, name string) (uint64, error) {
	var result struct {
		Count uint64 `json:"count,string"`
	}

	query := fmt.Sprintf("SELECT count() AS count FROM %s FINAL", s.table(name))

	if err := s.client.QueryOne(ctx, query, &result); err != nil {
		return 0, err
	}

	return result.Count, nil
}

func (s *catalogStore) queryCards(ctx context.Context, query string) ([]catalog.CardRecord, error) {
	var rows []cardRow
	if err := s.client.QueryMany(ctx, query, &rows); err != nil {
		return nil, err
	}

	cards := make([]catalog.CardRecord, 0, len(rows))

	for i := range rows {
		card, err := fromCardRow(&rows[i])
		if err != nil {
			return nil, err
		}

		cards = append(cards, card)
	}

	return cards, nil
}

func (s *catalogStore) table(name string) string {
	return s.database + "." + name
}

func toSetRow(set *catalog.SetRecord) setRow {
	return setRow{
		ID:          set.ID,
		Name:        set.Name,
		Series:      set.Series,
		ReleaseDate: set.ReleaseDate,
		Total:       set.Total,
		SymbolURL:   set.SymbolURL,
		LogoURL:     set.LogoURL,
		UpdatedAt:   set.UpdatedAt.UTC().Format(chTimeLayout),
	}
}

func fromSetRow(row *setRow) catalog.SetRecord {
	return catalog.SetRecord{
		ID:          row.ID,
		Name:        row.Name,
		Series:      row.Series,
		ReleaseDate: row.ReleaseDate,
		Total:       row.Total,
		SymbolURL:   row.SymbolURL,
		LogoURL:     row.LogoURL,
	}
}

func toCardRow(card *catalog.CardRecord) (cardRow, error) {
	cm, err := marshalPricing(card.Cardmarket)
	if err != nil {
		return cardRow{}, fmt.Errorf("failed to marshal cardmarket pricing for %s: %w", card.ID, err)
	}

	tp, err := marshalPricing(card.TCGPlayer)
	if err != nil {
		return cardRow{}, fmt.Errorf("failed to marshal tcgplayer pricing for %s: %w", card.ID, err)
	}

	types := card.Types
	if types == nil {
		types = []string{}
	}

	return cardRow{
		ID:             card.ID,
		SetID:          card.SetID,
		Name:           card.Name,
		Number:         card.Number,
		Rarity:         card.Rarity,
		Supertype:      card.Supertype,
		Types:          types,
		ImageSmall:     card.ImageSmall,
		ImageLarge:     card.ImageLarge,
		LegalStandard:  card.LegalStandard,
		LegalExpanded:  card.LegalExpanded,
		LegalUnlimited: card.LegalUnlimited,
		Cardmarket:     cm,
		TCGPlayer:      tp,
		UpdatedAt:      card.UpdatedAt.UTC().Format(chTimeLayout),
	}, nil
}

func fromCardRow(row *cardRow) (catalog.CardRecord, error) {
	card := catalog.CardRecord{
		ID:             row.ID,
		SetID:          row.SetID,
		Name:           row.Name,
		Number:         row.Number,
		Rarity:         row.Rarity,
		Supertype:      row.Supertype,
		Types:          row.Types,
		ImageSmall:     row.ImageSmall,
		ImageLarge:     row.ImageLarge,
		LegalStandard:  row.LegalStandard,
		LegalExpanded:  row.LegalExpanded,
		LegalUnlimited: row.LegalUnlimited,
	}

	if row.Cardmarket != "" {
		card.Cardmarket = &catalog.CardMarketPrices{}
		if err := json.Unmarshal([]byte(row.Cardmarket), card.Cardmarket); err != nil {
			return catalog.CardRecord{}, fmt.Errorf("failed to parse cardmarket pricing for %s: %w", row.ID, err)
		}
	}

	if row.TCGPlayer != "" {
		card.TCGPlayer = &catalog.TCGPlayerPrices{}
		if err := json.Unmarshal([]byte(row.TCGPlayer), card.TCGPlayer); err != nil {
			return catalog.CardRecord{}, fmt.Errorf("failed to parse tcgplayer pricing for %s: %w", row.ID, err)
		}
	}

	return card, nil
}

// marshalPricing encodes a pricing sub-structure, mapping nil to the empty
// string so "no data from this source" round-trips as absence.
func marshalPricing(v interface{}) (string, error) {
	switch p := v.(type) {
	case *catalog.CardMarketPrices:
		if p == nil {
			return "", nil
		}
	case *catalog.TCGPlayerPrices:
		if p == nil {
			return "", nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// escapeString escapes single quotes and backslashes for ClickHouse string
// literals.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
