package models

// AnalyzeRequest represents one founder update submitted for analysis.
type AnalyzeRequest struct {
	StartupID string `json:"startup_id" validate:"required,max=128,printascii"`
	InputText string `json:"input_text" validate:"max=20000"`
}

// HistoryRequest asks for the replayed snapshot log of one startup.
type HistoryRequest struct {
	StartupID string `json:"startup_id" validate:"required,max=128,printascii"`
}

// VersionDrift groups the drift detected when a version was created.
type VersionDrift struct {
	Version int         `json:"version"`
	Items   []DriftItem `json:"items"`
}

// History is the audit view of a startup's append-only snapshot log.
type History struct {
	StartupID     string            `json:"startup_id"`
	LatestVersion int               `json:"latest_version"`
	Snapshots     []StartupSnapshot `json:"snapshots"`
	Drift         []VersionDrift    `json:"drift"`
	// Pivots counts major_change drift items per field across the log.
	Pivots map[Field]int `json:"pivots"`
}
