// Package alertdb stores confirmed abnormal activity results in SQLite,
// for the service that hosts one or more activity engines.
package alertdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sentinel/pkg/activity"
	"gorm.io/gorm"
)

type AlertDB struct {
	log logs.Log
	db  *gorm.DB
}

// Open or create an alert DB
func NewAlertDB(logger logs.Log, dbFilename string) (*AlertDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0770)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open alert database %v: %w", dbFilename, err)
	}
	return &AlertDB{
		log: logger,
		db:  db,
	}, nil
}

// AddAlert records one confirmed abnormal result. Normal results are the
// caller's responsibility to filter out; we reject them here to catch bugs.
func (a *AlertDB) AddAlert(camera string, at time.Time, res *activity.Result) (*Alert, error) {
	if !res.IsAbnormal {
		return nil, fmt.Errorf("refusing to record a normal result as an alert")
	}
	alert := &Alert{
		Time:        dbh.MakeIntTime(at),
		Camera:      camera,
		Activity:    res.Type.String(),
		Severity:    string(res.Severity),
		Confidence:  float64(res.Confidence),
		Description: res.Description,
	}
	if err := a.db.Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// RecentAlerts returns the newest alerts for a camera, newest first.
// An empty camera returns alerts for all cameras.
func (a *AlertDB) RecentAlerts(camera string, limit int) ([]Alert, error) {
	q := a.db.Order("time DESC, id DESC").Limit(limit)
	if camera != "" {
		q = q.Where("camera = ?", camera)
	}
	alerts := []Alert{}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// PurgeOlderThan deletes alerts older than the cutoff, and returns the number deleted.
func (a *AlertDB) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result := a.db.Where("time < ?", dbh.MakeIntTime(cutoff)).Delete(&Alert{})
	return result.RowsAffected, result.Error
}
