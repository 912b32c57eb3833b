package model

import (
	"time"

	"gorm.io/datatypes"
)

// Guild is the per-server document holding every tag of that server.
type Guild struct {
	GuildID int64   `bson:"guildId" json:"guildId"`
	Admins  []int64 `bson:"admins" json:"admins"`
	Tags    []Tag   `bson:"tags" json:"tags"`
}

// Tag is a named member group embedded in a Guild. Names are stored
// lowercased; a tag never persists with zero members.
type Tag struct {
	Name    string  `bson:"name" json:"name"`
	Members []int64 `bson:"members" json:"members"`
}

// GuildRecord is the SQL row form of a Guild. Admins and Tags are kept as
// JSON documents; Version guards compare-and-swap updates.
type GuildRecord struct {
	GuildID   int64          `gorm:"primaryKey;autoIncrement:false" json:"guild_id"`
	Admins    datatypes.JSON `json:"admins"`
	Tags      datatypes.JSON `json:"tags"`
	Version   int64          `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GuildRecord) TableName() string { return "guild_records" }
