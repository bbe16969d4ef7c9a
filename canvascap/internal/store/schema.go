package store

// Schema contains the DDL for the capture archive.
const Schema = `
-- Finished captures: metadata plus the encoded image
CREATE TABLE IF NOT EXISTS captures (
    id              TEXT PRIMARY KEY,
    source_url      TEXT NOT NULL DEFAULT '',
    scale           INTEGER NOT NULL,
    width           INTEGER NOT NULL,
    height          INTEGER NOT NULL,
    tiles           INTEGER NOT NULL,
    exhausted       INTEGER NOT NULL DEFAULT 0,
    format          TEXT NOT NULL DEFAULT 'png',
    data            BLOB NOT NULL,
    captured_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_time ON captures(captured_at DESC);
CREATE INDEX IF NOT EXISTS idx_captures_url ON captures(source_url);

-- Per-tile outcomes, kept for diagnosing renderer stalls
CREATE TABLE IF NOT EXISTS capture_tiles (
    capture_id      TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
    tile_index      INTEGER NOT NULL,
    x               INTEGER NOT NULL,
    y               INTEGER NOT NULL,
    outcome         TEXT NOT NULL,
    retries         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (capture_id, tile_index)
);
`
