package activity

import (
	"encoding/json"
	"fmt"
)

// Type is the closed set of activities the engine can report.
type Type int

const (
	Normal Type = iota
	Running
	Fighting
	Falling
	Loitering
)

// Severity of an activity, for downstream alert routing.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// typeInfo is the per-type metadata table. Keeping it as a dense array
// indexed by Type gives us compile-time exhaustiveness via typeInfoTable's
// fixed length, instead of string-keyed lookups.
type typeInfo struct {
	name       string
	severity   Severity
	isAbnormal bool
	priority   int // Higher wins when multiple activities are confirmed in the same frame
}

var typeInfoTable = [...]typeInfo{
	Normal:    {name: "normal", severity: SeverityLow, isAbnormal: false, priority: 0},
	Running:   {name: "running", severity: SeverityMedium, isAbnormal: true, priority: 2},
	Fighting:  {name: "fighting", severity: SeverityHigh, isAbnormal: true, priority: 4},
	Falling:   {name: "falling", severity: SeverityHigh, isAbnormal: true, priority: 3},
	Loitering: {name: "loitering", severity: SeverityLow, isAbnormal: true, priority: 1},
}

func (t Type) valid() bool {
	return t >= 0 && int(t) < len(typeInfoTable)
}

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("activity(%d)", int(t))
	}
	return typeInfoTable[t].name
}

func (t Type) Severity() Severity {
	return typeInfoTable[t].severity
}

func (t Type) IsAbnormal() bool {
	return typeInfoTable[t].isAbnormal
}

func (t Type) Priority() int {
	return typeInfoTable[t].priority
}

// ParseType returns the Type with the given name.
func ParseType(name string) (Type, error) {
	for i := range typeInfoTable {
		if typeInfoTable[i].name == name {
			return Type(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown activity type '%v'", name)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Result is the engine's verdict for one input frame.
// Exactly one Result is produced per frame; ownership passes to the caller.
type Result struct {
	Type        Type     `json:"type"`
	IsAbnormal  bool     `json:"isAbnormal"`
	Severity    Severity `json:"severity"`
	Confidence  float32  `json:"confidence"`
	Description string   `json:"description"`
}

func makeResult(t Type, confidence float32, description string) Result {
	return Result{
		Type:        t,
		IsAbnormal:  t.IsAbnormal(),
		Severity:    t.Severity(),
		Confidence:  confidence,
		Description: description,
	}
}

// candidate is one detector's per-frame proposed activity, before temporal
// voting has confirmed it.
type candidate struct {
	activity    Type
	confidence  float32
	description string
}
