package database

import (
	"database/sql"
	"strconv"
	"time"
)

// GlobalOwner is the owner id of registrations made while the directory runs
// unscoped.
const GlobalOwner int64 = 0

// Channel is one registered destination channel. Rows are keyed by
// (OwnerID, ChannelID).
type Channel struct {
	OwnerID   int64          `db:"owner_id"`
	ChannelID int64          `db:"channel_id"`
	Title     string         `db:"title"`
	Username  sql.NullString `db:"username"` // "@handle" when the channel is public
	AddedAt   time.Time      `db:"added_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Label renders the channel as "<title> <@username>" or "<title> (<id>)".
func (c Channel) Label() string {
	if c.Username.Valid && c.Username.String != "" {
		return c.Title + " " + c.Username.String
	}
	return c.Title + " (" + strconv.FormatInt(c.ChannelID, 10) + ")"
}

// SessionRecord is the persisted form of an operator session. Pending holds
// the JSON-encoded content queue.
type SessionRecord struct {
	OperatorID int64     `db:"operator_id"`
	Step       string    `db:"step"`
	Pending    string    `db:"pending"`
	UpdatedAt  time.Time `db:"updated_at"`
}
