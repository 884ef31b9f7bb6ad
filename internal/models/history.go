package models

import (
	"database/sql"
	"time"
)

// WeatherFetch is one attempt to refresh the weather snapshot.
type WeatherFetch struct {
	ID         int64
	Source     string // "weatherapi" or "openweather"
	StartedAt  time.Time
	DurationMS int64
	Success    bool
	Condition  sql.NullString
	Temp       sql.NullFloat64
	Sunrise    sql.NullString // "HH:MM"
	Sunset     sql.NullString
	ErrorKind  sql.NullString // "transport", "malformed", "other"
	ErrorMsg   sql.NullString
	CreatedAt  time.Time
}

// StatusPush is one attempt to apply status text to the chat account.
type StatusPush struct {
	ID         int64
	Text       string
	PushedAt   time.Time
	DurationMS int64
	Success    bool
	ErrorMsg   sql.NullString
	CreatedAt  time.Time
}
