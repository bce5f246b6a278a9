package model

import (
    "time"

    "github.com/paulmach/orb"
)

// Core domain types shared by the engines, stores and the API.

// FloodDesignation is the flood-zone code that marks a segment as flood exposed.
const FloodDesignation = "FLOOD_AE/A"

// RoadSegment is a road edge with static risk attributes. Absent attributes are nil.
type RoadSegment struct {
    ID         string         `json:"id"`
    Name       string         `json:"name,omitempty"`
    Bearing    *float64       `json:"bearing,omitempty"`
    HINStatus  *string        `json:"hinStatus,omitempty"`
    HINRank    *float64       `json:"hinRank,omitempty"`
    FloodZone  *string        `json:"floodZone,omitempty"`
    Geometry   orb.Geometry   `json:"-"`
    Attributes map[string]any `json:"-"`
}

// OcclusionLabel is the solar-occlusion category of a segment bearing.
type OcclusionLabel string

const (
    OcclusionUnknown OcclusionLabel = "Unknown"
    OcclusionSunrise OcclusionLabel = "Sunrise (approx 6:30 AM - 8:30 AM)"
    OcclusionSunset  OcclusionLabel = "Sunset (approx 5:30 PM - 7:30 PM)"
    OcclusionNone    OcclusionLabel = "No Issue (North/South)"
)

// ScoredSegment is a RoadSegment enriched by the scoring pass.
type ScoredSegment struct {
    RoadSegment
    ComplexityScore int            `json:"complexityScore"`
    OcclusionLabel  OcclusionLabel `json:"occlusionLabel"`
    RiskBand        string         `json:"riskBand"`
}

// WeatherSnapshot is a point-in-time weather reading plus the solar position.
type WeatherSnapshot struct {
    TemperatureF     float64   `json:"temperatureF"`
    Conditions       string    `json:"conditions"`
    VisibilityMeters float64   `json:"visibilityMeters"`
    SolarAltitude    float64   `json:"solarAltitude"`
    SolarAzimuth     float64   `json:"solarAzimuth"`
    ObservedAt       time.Time `json:"observedAt"`
}

// TrafficIncident is an active incident reported by the traffic provider.
type TrafficIncident struct {
    Category    string         `json:"category"`
    Magnitude   int            `json:"magnitude"`
    Coordinates orb.LineString `json:"coordinates"`
}

// FirstPoint returns the first coordinate of the incident geometry.
func (t TrafficIncident) FirstPoint() (orb.Point, bool) {
    if len(t.Coordinates) == 0 {
        return orb.Point{}, false
    }
    return t.Coordinates[0], true
}

// LiveConditions is one cached fetch cycle of weather and traffic.
type LiveConditions struct {
    Weather   *WeatherSnapshot  `json:"weather"`
    Incidents []TrafficIncident `json:"incidents"`
    FetchedAt time.Time         `json:"fetchedAt"`
}

// NodeID identifies an intersection in a road graph.
type NodeID int64

// RouteRequest is the input of one synthesis run.
type RouteRequest struct {
    Origin               NodeID  `json:"origin"`
    TargetDistanceMeters float64 `json:"targetDistanceMeters"`
    MaxWaypoints         int     `json:"maxWaypoints"`
}

// RouteStatus tells whether a synthesized route closes back on its origin.
type RouteStatus string

const (
    RouteClosed     RouteStatus = "closed"
    RouteOpen       RouteStatus = "open"
    RouteDegenerate RouteStatus = "degenerate"
)

// SynthesizedRoute is the result of one synthesis run. Immutable once built.
type SynthesizedRoute struct {
    ID                       string       `json:"id"`
    Path                     []NodeID     `json:"path"`
    Coordinates              [][2]float64 `json:"coordinates,omitempty"` // [lat, lon]
    TotalDistanceMeters      float64      `json:"totalDistanceMeters"`
    TotalDistanceMiles       float64      `json:"totalDistanceMiles"`
    EstimatedDurationMinutes float64      `json:"estimatedDurationMinutes"`
    WaypointCount            int          `json:"waypointCount"`
    NodesTraversed           int          `json:"nodesTraversed"`
    FailedLegs               int          `json:"failedLegs"`
    Status                   RouteStatus  `json:"status"`
    DurationMinutes          int          `json:"durationMinutes,omitempty"`
    RadiusMeters             float64      `json:"radiusMeters,omitempty"`
    CreatedAt                time.Time    `json:"createdAt"`
}

// Closed reports whether the route ends on its origin.
func (r SynthesizedRoute) Closed() bool { return r.Status == RouteClosed }

// Disengagement is a historical autonomy disengagement event.
type Disengagement struct {
    Lat      float64 `json:"lat"`
    Lon      float64 `json:"lon"`
    Reason   string  `json:"reason"`
    Severity string  `json:"severity"`
}

// Depot is the fixed origin/destination of collection routes.
type Depot struct {
    Name string  `json:"name"`
    Lat  float64 `json:"lat"`
    Lon  float64 `json:"lon"`
}

// RouteGenerateRequest is the body of POST /v1/routes.
type RouteGenerateRequest struct {
    DurationMinutes int   `json:"durationMinutes" validate:"required,oneof=30 60 120 240"`
    Seed            int64 `json:"seed,omitempty"`
}

// Manifest is the driver dispatch manifest for a synthesized route.
type Manifest struct {
    RouteID          string      `json:"routeId"`
    DistanceMiles    float64     `json:"distanceMiles"`
    DurationMinutes  float64     `json:"durationMinutes"`
    NodesTraversed   int         `json:"nodesTraversed"`
    Waypoints        int         `json:"waypoints"`
    Status           RouteStatus `json:"status"`
    Objective        string      `json:"objective"`
    GeneratedAt      time.Time   `json:"generatedAt"`
}
