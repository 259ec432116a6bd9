package storage

const schema = `
-- Decks group cards. cards_count caches the number of active cards and is
-- maintained by the trash manager and the maintenance sweep.
CREATE TABLE IF NOT EXISTS decks (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    cards_count       INTEGER NOT NULL DEFAULT 0,
    new_cards_per_day INTEGER NOT NULL DEFAULT 20,
    reviews_per_day   INTEGER NOT NULL DEFAULT 200,
    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);

-- Cards carry a soft-delete marker instead of being removed. deleted_at is
-- zero unless deleted = 'deleted'. Tags are stored as a JSON array.
CREATE TABLE IF NOT EXISTS cards (
    id         TEXT PRIMARY KEY,
    deck_id    TEXT NOT NULL,
    front      TEXT NOT NULL,
    back       TEXT NOT NULL,
    tags       TEXT NOT NULL DEFAULT '[]',
    source     TEXT NOT NULL DEFAULT '',
    notes      TEXT NOT NULL DEFAULT '',
    deleted    TEXT NOT NULL DEFAULT 'active',
    deleted_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_deck_id ON cards(deck_id);
CREATE INDEX IF NOT EXISTS idx_cards_deleted ON cards(deleted);

-- One scheduling row per studied card; id equals card_id for locally created
-- reviews but may be a server uuid for downloaded ones.
CREATE TABLE IF NOT EXISTS card_reviews (
    id          TEXT PRIMARY KEY,
    card_id     TEXT NOT NULL,
    ease        REAL NOT NULL,
    interval    REAL NOT NULL,
    repetitions INTEGER NOT NULL,
    next_review INTEGER NOT NULL,
    last_review INTEGER NOT NULL,
    state       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_card_reviews_card_id ON card_reviews(card_id);
CREATE INDEX IF NOT EXISTS idx_card_reviews_next_review ON card_reviews(next_review);

-- Append-only grading history.
CREATE TABLE IF NOT EXISTS study_logs (
    id         TEXT PRIMARY KEY,
    card_id    TEXT NOT NULL,
    rating     INTEGER NOT NULL,
    time_spent INTEGER NOT NULL,
    timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_study_logs_card_id ON study_logs(card_id);
CREATE INDEX IF NOT EXISTS idx_study_logs_timestamp ON study_logs(timestamp);

-- Recoverable-delete ledger. data is the frozen card snapshot as JSON.
CREATE TABLE IF NOT EXISTS trash_items (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    deck_name   TEXT NOT NULL DEFAULT '',
    deleted_at  INTEGER NOT NULL,
    data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trash_items_deleted_at ON trash_items(deleted_at);
`
