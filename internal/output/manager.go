// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/jungyu/DataScout-sub003/internal/extract"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// Manager builds the writer for a config and runs one write cycle.
type Manager struct {
	config Config
	log    utils.Logger
}

// NewManager creates an output manager for the given config.
func NewManager(config Config, log utils.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewComponentLogger("output")
	}
	return &Manager{config: config, log: log}, nil
}

// NewWriter constructs the writer for the configured format.
func (m *Manager) NewWriter(ctx context.Context) (Writer, error) {
	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(m.config.File)
	case FormatCSV:
		return NewCSVWriter(m.config.File)
	case FormatSQLite:
		return NewSQLiteWriter(m.config)
	case FormatPostgreSQL:
		return NewPostgreSQLWriter(m.config)
	case FormatMySQL:
		return NewMySQLWriter(m.config)
	case FormatMongoDB:
		return NewMongoDBWriter(ctx, m.config)
	case FormatExcel:
		return NewExcelWriter(m.config)
	}
	return nil, fmt.Errorf("unsupported output format: %q", m.config.Format)
}

// Write persists records through the configured writer, closing it when
// done.
func (m *Manager) Write(ctx context.Context, records []extract.Record) error {
	writer, err := m.NewWriter(ctx)
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.Write(ctx, records); err != nil {
		return fmt.Errorf("%s output failed: %w", m.config.Format, err)
	}
	m.log.Infof("wrote %d records to %s output", len(records), m.config.Format)
	return nil
}
