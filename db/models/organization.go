package models

import (
	"time"
)

// Organization : Organization (tenant) Model
type Organization struct {
	ID         int64     `bun:",pk,autoincrement"`
	Name       string    `bun:",notnull"`
	QboRealmID string    `bun:",nullzero"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
