package schemas

// ReadingResponse represents one stored gauge observation
type ReadingResponse struct {
	SiteCode     string  `json:"site_code" doc:"USGS site code"`
	SiteName     string  `json:"site_name" doc:"Display name"`
	RecordedAt   string  `json:"recorded_at" doc:"Observation instant (UTC)"`
	DischargeCFS float64 `json:"discharge_cfs" doc:"Discharge in cubic feet per second"`
	FetchedAt    string  `json:"fetched_at" doc:"When the refresh job stored it"`
}
