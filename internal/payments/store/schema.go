// SPDX-License-Identifier: MIT

package store

// migrations are applied in order; never edit a released step, append one.
var migrations = []string{
	`
	CREATE TABLE users (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email    TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE sites (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL UNIQUE,
		name   TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE catalogue_items (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		sku       TEXT NOT NULL UNIQUE,
		type      TEXT NOT NULL,
		title     TEXT NOT NULL DEFAULT '',
		price     INTEGER NOT NULL DEFAULT 0,
		currency  TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE carts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status       TEXT NOT NULL DEFAULT 'pending',
		fulfilled_at INTEGER,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	);
	CREATE INDEX idx_carts_status ON carts(status, fulfilled_at);
	CREATE TABLE cart_items (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		cart_id           INTEGER NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		catalogue_item_id INTEGER NOT NULL REFERENCES catalogue_items(id),
		original_price    INTEGER NOT NULL,
		discount_amount   INTEGER NOT NULL DEFAULT 0,
		tax_amount        INTEGER NOT NULL DEFAULT 0,
		final_price       INTEGER NOT NULL
	);
	CREATE TABLE transactions (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		cart_id                INTEGER REFERENCES carts(id) ON DELETE SET NULL,
		user_id                INTEGER REFERENCES users(id) ON DELETE SET NULL,
		type                   TEXT NOT NULL,
		status                 TEXT NOT NULL,
		gateway                TEXT NOT NULL,
		gateway_transaction_id TEXT NOT NULL,
		amount                 INTEGER NOT NULL,
		currency               TEXT NOT NULL,
		method                 TEXT NOT NULL DEFAULT '',
		reason                 TEXT NOT NULL DEFAULT '',
		response               TEXT NOT NULL DEFAULT '{}',
		created_at             INTEGER NOT NULL,
		UNIQUE (gateway, gateway_transaction_id)
	);
	CREATE TABLE invoices (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT UNIQUE,
		cart_id        INTEGER NOT NULL UNIQUE REFERENCES carts(id) ON DELETE CASCADE,
		status         TEXT NOT NULL DEFAULT 'draft',
		gross_total    INTEGER NOT NULL,
		discount_total INTEGER NOT NULL DEFAULT 0,
		tax_total      INTEGER NOT NULL DEFAULT 0,
		total          INTEGER NOT NULL,
		currency       TEXT NOT NULL,
		transaction_id INTEGER REFERENCES transactions(id) ON DELETE SET NULL,
		created_at     INTEGER NOT NULL
	);
	CREATE TABLE webhook_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		gateway    TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE enrollments (
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		course_id  TEXT NOT NULL,
		mode       TEXT NOT NULL,
		cart_id    INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, course_id)
	);
	`,
	`
	ALTER TABLE carts ADD COLUMN fulfillment_attempts INTEGER NOT NULL DEFAULT 0;
	ALTER TABLE carts ADD COLUMN next_fulfillment_at INTEGER;
	`,
}
