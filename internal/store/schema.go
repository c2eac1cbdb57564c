package store

import "database/sql"

// InitSchema creates the catalog DB tables if they do not exist. The
// conversations table mirrors model.Conversation; fingerprints is a
// per-conversation content-fingerprint ledger read back through
// Store.Fingerprint. The Catalog's change detection does not consult it.
func InitSchema(d *sql.DB) error {
	_, err := d.Exec(schemaDDL)
	return err
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS conversations (
	id                  VARCHAR PRIMARY KEY,
	source_path         VARCHAR NOT NULL,
	project             VARCHAR NOT NULL,
	size_bytes          BIGINT NOT NULL,
	mod_time            TIMESTAMP NOT NULL,
	first_timestamp     TIMESTAMP,
	last_timestamp      TIMESTAMP,
	message_count       INTEGER NOT NULL DEFAULT 0,
	duration_millis     BIGINT NOT NULL DEFAULT 0,
	content_fingerprint VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS fingerprints (
	conversation_id     VARCHAR PRIMARY KEY REFERENCES conversations(id),
	content_fingerprint VARCHAR NOT NULL,
	updated_at          TIMESTAMP NOT NULL
);
`
