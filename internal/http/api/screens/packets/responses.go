package packets

// RESPONSES FOR /api/screens/*

// HealthResponse is the liveness document for one hosted screen.
type HealthResponse struct {
	Status    string `json:"status"`
	ScreenID  int    `json:"screen_id"`
	Directive string `json:"directive"`
	Zones     int    `json:"zones"`
	Stale     bool   `json:"stale"`
	At        string `json:"at"`
}
