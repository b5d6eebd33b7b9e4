// internal/store/model.go
//
// `contact_submission` table row model.
//
// Context
// -------
// Every message accepted by the contact form is archived so the owner can
// still read it when the mail relay drops it.  The row also keeps a small
// fingerprint of the sender (client IP, country, browser family, device
// class, bot flag) taken from request info at submit time.
//
// Schema reference (MySQL flavour; see Migrations for SQLite)
//
//	CREATE TABLE contact_submission (
//	    id          CHAR(36)      PRIMARY KEY,
//	    form_id     VARCHAR(64)   NOT NULL,
//	    name        VARCHAR(128)  NOT NULL,
//	    email       VARCHAR(320)  NOT NULL,
//	    message     TEXT          NOT NULL,
//	    client_ip   VARCHAR(45)   NOT NULL DEFAULT '',
//	    country     CHAR(2)       NOT NULL DEFAULT '',
//	    browser     VARCHAR(64)   NOT NULL DEFAULT '',
//	    device      VARCHAR(16)   NOT NULL DEFAULT '',
//	    is_bot      TINYINT(1)    NOT NULL DEFAULT 0,
//	    created_at  TIMESTAMP     NOT NULL
//	);
//
// Notes
// -----
// • `ID` is a random UUID assigned by the caller, not the database.
// • This struct contains no behaviour, pure data model for sqlx scans.
package store

import "time"

// Submission mirrors one row in the `contact_submission` table.
type Submission struct {
	ID        string    `db:"id"         json:"id"`
	FormID    string    `db:"form_id"    json:"form_id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	Message   string    `db:"message"    json:"message"`
	ClientIP  string    `db:"client_ip"  json:"client_ip"`
	Country   string    `db:"country"    json:"country"`
	Browser   string    `db:"browser"    json:"browser"`
	Device    string    `db:"device"     json:"device"`
	IsBot     bool      `db:"is_bot"     json:"is_bot"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
