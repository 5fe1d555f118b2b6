package model

import "time"

// User is the lightweight profile upserted as a side effect of activity
// ingestion. Groups records every workspace the user has been seen in.
type User struct {
	UserID        int64     `bson:"user_id" json:"user_id"`
	Username      string    `bson:"username" json:"username"`
	Picture       string    `bson:"picture,omitempty" json:"picture,omitempty"`
	Groups        []int64   `bson:"groups,omitempty" json:"groups,omitempty"`
	BirthdayDay   int       `bson:"birthday_day,omitempty" json:"birthday_day,omitempty"`
	BirthdayMonth int       `bson:"birthday_month,omitempty" json:"birthday_month,omitempty"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
