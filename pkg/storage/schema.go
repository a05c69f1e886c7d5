package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// schemaDDL is the catalog schema, rendered per configured database; a blank
// or whitespace database name falls back to the stock one at render time.
// Sets and cards are ReplacingMergeTree keyed by id: an upsert is an insert
// of a row with a newer updated_at, collapsed on merge (reads use FINAL).
// Price snapshots are append-only and never rewritten.
const schemaDDL = `
{{- $db := .Database | trim | default "tcgvault" -}}
CREATE DATABASE IF NOT EXISTS {{ $db }};

CREATE TABLE IF NOT EXISTS {{ $db }}.sets (
    id           String,
    name         String,
    series       String,
    release_date String,
    total        UInt32,
    symbol_url   String,
    logo_url     String,
    updated_at   DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY id;

CREATE TABLE IF NOT EXISTS {{ $db }}.cards (
    id              String,
    set_id          String,
    name            String,
    number          String,
    rarity          String,
    supertype       String,
    types           Array(String),
    image_small     String,
    image_large     String,
    legal_standard  String,
    legal_expanded  String,
    legal_unlimited String,
    cardmarket      String,
    tcgplayer       String,
    updated_at      DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (set_id, id);

CREATE TABLE IF NOT EXISTS {{ $db }}.price_snapshots (
    card_id     String,
    variant     LowCardinality(String),
    source      LowCardinality(String),
    price       Float64,
    low         Nullable(Float64),
    mid         Nullable(Float64),
    trend       Nullable(Float64),
    captured_at DateTime
) ENGINE = MergeTree
ORDER BY (card_id, variant, source, captured_at);
`

// ensureSchema renders the schema template and executes each statement.
// ClickHouse's HTTP interface takes one statement per request.
func ensureSchema(ctx context.Context, c ClientInterface, database string) error {
	tmpl, err := template.New("schema").Funcs(sprig.TxtFuncMap()).Parse(schemaDDL)
	if err != nil {
		return fmt.Errorf("failed to parse schema template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{"Database": database}); err != nil {
		return fmt.Errorf("failed to render schema template: %w", err)
	}

	for _, stmt := range strings.Split(buf.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := c.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
