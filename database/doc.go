// Package database wraps GORM with connection retry, pooling, transactions
// and a lifecycle Component. The driver is chosen by Config.Driver: postgres
// runs the versioned migrations from database/migration, sqlite relies on
// gorm auto-migration and backs the tests through database/testutil.
package database
