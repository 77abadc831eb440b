package strava

import (
	"strconv"
	"strings"
	"time"
)

type MetaAthlete struct {
	ID int64 `json:"id"`
}

type LatLng [2]float64

type ActivityType string

const (
	ActivityTypeAlpineSki       ActivityType = "AlpineSki"
	ActivityTypeBackcountrySki  ActivityType = "BackcountrySki"
	ActivityTypeCanoeing        ActivityType = "Canoeing"
	ActivityTypeCrossfit        ActivityType = "Crossfit"
	ActivityTypeEBikeRide       ActivityType = "EBikeRide"
	ActivityTypeElliptical      ActivityType = "Elliptical"
	ActivityTypeHandcycle       ActivityType = "Handcycle"
	ActivityTypeHike            ActivityType = "Hike"
	ActivityTypeIceSkate        ActivityType = "IceSkate"
	ActivityTypeInlineSkate     ActivityType = "InlineSkate"
	ActivityTypeKayaking        ActivityType = "Kayaking"
	ActivityTypeKitesurf        ActivityType = "Kitesurf"
	ActivityTypeNordicSki       ActivityType = "NordicSki"
	ActivityTypeRide            ActivityType = "Ride"
	ActivityTypeRockClimbing    ActivityType = "RockClimbing"
	ActivityTypeRollerSki       ActivityType = "RollerSki"
	ActivityTypeRowing          ActivityType = "Rowing"
	ActivityTypeRun             ActivityType = "Run"
	ActivityTypeSnowboard       ActivityType = "Snowboard"
	ActivityTypeSnowshoe        ActivityType = "Snowshoe"
	ActivityTypeStairStepper    ActivityType = "StairStepper"
	ActivityTypeStandUpPaddling ActivityType = "StandUpPaddling"
	ActivityTypeSurfing         ActivityType = "Surfing"
	ActivityTypeSwim            ActivityType = "Swim"
	ActivityTypeVelomobile      ActivityType = "Velomobile"
	ActivityTypeVirtualRide     ActivityType = "VirtualRide"
	ActivityTypeVirtualRun      ActivityType = "VirtualRun"
	ActivityTypeWalk            ActivityType = "Walk"
	ActivityTypeWeightTraining  ActivityType = "WeightTraining"
	ActivityTypeWheelchair      ActivityType = "Wheelchair"
	ActivityTypeWindsurf        ActivityType = "Windsurf"
	ActivityTypeWorkout         ActivityType = "Workout"
	ActivityTypeYoga            ActivityType = "Yoga"
)

type SportType string

const (
	SportTypeEMountainBikeRide SportType = "EMountainBikeRide"
	SportTypeGravelRide        SportType = "GravelRide"
	SportTypeMountainBikeRide  SportType = "MountainBikeRide"
	SportTypeTrailRun          SportType = "TrailRun"
)

// typeCodes maps API activity types to the numeric codes Strava writes into
// the <type> element of exported GPX files.
var typeCodes = map[ActivityType]int{
	ActivityTypeRide:            1,
	ActivityTypeAlpineSki:       2,
	ActivityTypeBackcountrySki:  3,
	ActivityTypeHike:            4,
	ActivityTypeIceSkate:        5,
	ActivityTypeInlineSkate:     6,
	ActivityTypeNordicSki:       7,
	ActivityTypeRollerSki:       8,
	ActivityTypeRun:             9,
	ActivityTypeWalk:            10,
	ActivityTypeWorkout:         11,
	ActivityTypeSnowboard:       12,
	ActivityTypeSnowshoe:        13,
	ActivityTypeKitesurf:        14,
	ActivityTypeWindsurf:        15,
	ActivityTypeSwim:            16,
	ActivityTypeVirtualRide:     17,
	ActivityTypeEBikeRide:       18,
	ActivityTypeVelomobile:      19,
	ActivityTypeCanoeing:        21,
	ActivityTypeKayaking:        22,
	ActivityTypeRowing:          23,
	ActivityTypeStandUpPaddling: 24,
	ActivityTypeSurfing:         25,
	ActivityTypeCrossfit:        26,
	ActivityTypeElliptical:      27,
	ActivityTypeRockClimbing:    28,
	ActivityTypeStairStepper:    29,
	ActivityTypeWeightTraining:  30,
	ActivityTypeYoga:            31,
	ActivityTypeHandcycle:       51,
	ActivityTypeWheelchair:      52,
	ActivityTypeVirtualRun:      53,
}

var sportTypeCodes = map[SportType]int{
	SportTypeMountainBikeRide:  1,
	SportTypeGravelRide:        1,
	SportTypeEMountainBikeRide: 18,
	SportTypeTrailRun:          9,
}

// Names used by GPX files from other exporters.
var exportNames = map[string]int{
	"cycling":            1,
	"biking":             1,
	"alpineskiing":       2,
	"backcountryskiing":  3,
	"hiking":             4,
	"iceskating":         5,
	"inlineskating":      6,
	"crosscountryskiing": 7,
	"rollerskiing":       8,
	"running":            9,
	"walking":            10,
	"snowboarding":       12,
	"snowshoeing":        13,
	"kitesurfing":        14,
	"windsurfing":        15,
	"swimming":           16,
	"virtualbiking":      17,
	"ebiking":            18,
	"paddling":           21,
	"handcycling":        51,
	"virtualrunning":     53,
}

// TypeCode resolves a GPX <type> value to a Strava numeric type code. Numbers
// are taken as they are; names are matched case-insensitively against both API
// type names ("Run") and exporter names ("running").
func TypeCode(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	for t, code := range typeCodes {
		if strings.ToLower(string(t)) == key {
			return code, true
		}
	}
	for t, code := range sportTypeCodes {
		if strings.ToLower(string(t)) == key {
			return code, true
		}
	}
	code, ok := exportNames[key]
	return code, ok
}

// Ignoring most fields because the heatmap only needs identity and type.
type SummaryActivity struct {
	ID             int64        `json:"id"`
	ExternalID     string       `json:"external_id"`
	Athlete        MetaAthlete  `json:"athlete"`
	Name           string       `json:"name"`
	Distance       float64      `json:"distance"`
	Type           ActivityType `json:"type"` // Deprecated
	SportType      SportType    `json:"sport_type"`
	StartDate      time.Time    `json:"start_date"`
	StartDateLocal time.Time    `json:"start_date_local"`
	Timezone       string       `json:"timezone"`
	StartLatLng    LatLng       `json:"start_latlng"`
	EndLatLng      LatLng       `json:"end_latlng"`
	Trainer        bool         `json:"trainer"`
	Manual         bool         `json:"manual"`
	Private        bool         `json:"private"`
}

// TypeCode returns the numeric GPX type code, 0 when unknown.
func (a SummaryActivity) TypeCode() int {
	if code, ok := typeCodes[a.Type]; ok {
		return code
	}
	if code, ok := sportTypeCodes[a.SportType]; ok {
		return code
	}
	if code, ok := typeCodes[ActivityType(a.SportType)]; ok {
		return code
	}
	return 0
}

type StreamType string

const (
	StreamLatLng   StreamType = "latlng"
	StreamAltitude StreamType = "altitude"
	StreamTime     StreamType = "time"
)

type LatLngStream struct {
	Data       []LatLng `json:"data"`
	Resolution string   `json:"resolution"`
}

type FloatStream struct {
	Data       []float64 `json:"data"`
	Resolution string    `json:"resolution"`
}

type IntegerStream struct {
	Data       []int  `json:"data"`
	Resolution string `json:"resolution"`
}

// StreamSet is the key_by_type=true response of the activity streams endpoint.
type StreamSet struct {
	LatLng   *LatLngStream  `json:"latlng,omitempty"`
	Altitude *FloatStream   `json:"altitude,omitempty"`
	Time     *IntegerStream `json:"time,omitempty"`
}

func (s StreamSet) HasGPS() bool {
	return s.LatLng != nil && len(s.LatLng.Data) > 0
}
