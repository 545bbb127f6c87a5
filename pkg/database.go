package decoder

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

type ChipLayoutEntry struct {
	ChipNumber uint8 `db:"ChipNumber"`
	ChipTransform
}

// LoadChipLayout reads the chip placement valid for runNumber and merges it
// over the default mosaic. Chips missing from the table keep their default
// transform.
func LoadChipLayout(db *sqlx.DB, runNumber int, verbosity int) (ChipLayout, error) {
	query := "SELECT ChipNumber, XOffset, YOffset, FlipX, FlipY FROM ChipLayout WHERE MinRun <= ? and MaxRun >= ? ORDER BY ChipNumber"

	if verbosity > 0 {
		logger.Info("Chip layout read from DB", "database")
	}
	if verbosity > 2 {
		message := fmt.Sprintf("Query: %s (run %d)", query, runNumber)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(db.Rebind(query), runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	overrides := make(ChipLayout)
	for rows.Next() {
		result := ChipLayoutEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		overrides[result.ChipNumber] = result.ChipTransform
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading chip layout rows: %w", err)
	}
	return DefaultChipLayout().Merge(overrides), nil
}
