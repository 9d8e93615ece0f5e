package alertdb

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Alert is one confirmed abnormal activity, as emitted by the engine.
// The engine itself only returns results; the surrounding service decides
// which of them to record here.
type Alert struct {
	BaseModel
	Time        dbh.IntTime `json:"time"`
	Camera      string      `json:"camera"`
	Activity    string      `json:"activity"`
	Severity    string      `json:"severity"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description"`
}
