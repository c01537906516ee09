package db

import "gorm.io/gorm"

// LockSuffix returns the row-locking clause for admission-control reads.
// sqlite has no FOR UPDATE; its single-writer transactions already give
// the same serialization, so the clause is omitted there.
func LockSuffix(conn *gorm.DB) string {
	if conn.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
