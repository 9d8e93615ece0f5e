package alertdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE alert(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			camera TEXT NOT NULL,
			activity TEXT NOT NULL,
			severity TEXT NOT NULL,
			confidence REAL NOT NULL,
			description TEXT
		);

		CREATE INDEX idx_alert_camera_time ON alert (camera, time);
	`))

	return migs
}
