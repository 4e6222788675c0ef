package models

// ============================================================
// Catalog Models
// ============================================================

// Capture is one room scan on disk.
type Capture struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ModifiedAt string `json:"modified_at"`
}

// Structure is one merged export.
type Structure struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Rooms     []string `json:"rooms"`
	JSONPath  string   `json:"json_path"`
	Walls     int      `json:"walls"`
	Doors     int      `json:"doors"`
	Windows   int      `json:"windows"`
	Openings  int      `json:"openings"`
	Objects   int      `json:"objects"`
	CreatedAt string   `json:"created_at"`
}
