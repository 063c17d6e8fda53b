// internal/output/mysql.go
package output

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLWriter writes records to a MySQL table.
type MySQLWriter struct {
	*sqlWriter
}

// NewMySQLWriter connects using the given DSN, e.g.
// "user:pass@tcp(host:3306)/db?parseTime=true".
func NewMySQLWriter(config Config) (*MySQLWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("mysql output requires a DSN")
	}
	w, err := newSQLWriter("mysql", config.DSN, dialectMySQL, config)
	if err != nil {
		return nil, err
	}
	return &MySQLWriter{sqlWriter: w}, nil
}
