package db

import (
	"fmt"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm handle for driver "sqlite" or "mysql".
//
// DSN examples:
//
//	sqlite: file:chatbot.db?_pragma=busy_timeout(5000)
//	mysql:  app:apppass@tcp(127.0.0.1:3306)/ai_chatbot?charset=utf8mb4&parseTime=true&loc=Local
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		if dsn == "" {
			dsn = "file:chatbot.db"
		}
		dialector = gormsqlite.Open(dsn)
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("db: mysql requires a dsn")
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}
	return gdb, nil
}
