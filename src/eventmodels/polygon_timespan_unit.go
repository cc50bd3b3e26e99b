package eventmodels

type PolygonTimespanUnit string

const (
	PolygonTimespanUnitSecond PolygonTimespanUnit = "second"
	PolygonTimespanUnitMinute PolygonTimespanUnit = "minute"
	PolygonTimespanUnitHour   PolygonTimespanUnit = "hour"
	PolygonTimespanUnitDay    PolygonTimespanUnit = "day"
	PolygonTimespanUnitWeek   PolygonTimespanUnit = "week"
)
