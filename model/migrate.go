package model

import "gorm.io/gorm"

// storeModels are the tables used by the SQL tag store.
var storeModels = []interface{}{
	&GuildRecord{},
}

// AutoMigrate creates or updates the tag store tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(storeModels...)
}

// AutoMigrateAudit creates or updates the audit log table.
func AutoMigrateAudit(db *gorm.DB) error {
	return db.AutoMigrate(&AuditLog{})
}
