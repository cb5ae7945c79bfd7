// Package protocol defines the JSON wire types of the timetuner admin API.
// They are shared by the HTTP handlers and the timetunerctl client.
package protocol

// AllZones is the path value that targets every managed zone.
const AllZones = "all"

// ZoneStatus describes one managed zone.
type ZoneStatus struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Phase       string  `json:"phase"`
	Paused      bool    `json:"paused"`
	AutoPaused  bool    `json:"auto_paused"`
	RawTime     int64   `json:"raw_time"`
	LastWritten int64   `json:"last_written"`
	Accumulated float64 `json:"accumulated"`
	DaySpeed    float64 `json:"day_speed"`
	NightSpeed  float64 `json:"night_speed"`
	Override    bool    `json:"override"`
	Votes       int     `json:"votes"`
	Eligible    int     `json:"eligible"`
}

// ZoneList is the response of GET /v1/zones.
type ZoneList struct {
	Zones []ZoneStatus `json:"zones"`
}

// Status is the response of GET /v1/status.
type Status struct {
	DaySpeed       float64      `json:"day_speed"`
	NightSpeed     float64      `json:"night_speed"`
	TickFrequency  int          `json:"tick_frequency"`
	AllowSleepSkip bool         `json:"allow_sleep_skip"`
	AutoPauseEmpty bool         `json:"auto_pause_empty"`
	Zones          []ZoneStatus `json:"zones"`
}

// CommandResult reports the effect of a command on one zone.
type CommandResult struct {
	Zone    string `json:"zone"`
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
}

// CommandResponse is returned by pause, resume and skip.
type CommandResponse struct {
	Results []CommandResult `json:"results"`
	Message string          `json:"message"`
}

// SpeedRequest sets a speed pair. Both fields are required.
type SpeedRequest struct {
	Day   *float64 `json:"day"`
	Night *float64 `json:"night"`
}

// SpeedResponse echoes the applied speed pair.
type SpeedResponse struct {
	Day     float64 `json:"day"`
	Night   float64 `json:"night"`
	Message string  `json:"message"`
}

// ReloadResponse is returned by POST /v1/reload.
type ReloadResponse struct {
	Added   []string          `json:"added"`
	Removed []string          `json:"removed"`
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
	Message string            `json:"message"`
}

// JoinRequest places a player in a simulated zone.
type JoinRequest struct {
	Exempt bool `json:"exempt"`
}

// BedRequest reports a bed-enter attempt and the host's classification.
type BedRequest struct {
	Result string `json:"result"`
}

// VoteResponse reports what a bed-enter attempt did.
type VoteResponse struct {
	Outcome string `json:"outcome"`
	Skipped bool   `json:"skipped"`
	Votes   int    `json:"votes"`
	Needed  int    `json:"needed"`
}

// WeatherRequest sets the weather of a simulated zone.
type WeatherRequest struct {
	Storming   bool `json:"storming"`
	Thundering bool `json:"thundering"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
