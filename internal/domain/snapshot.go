package domain

import "time"

const (
	// SnapshotKeyLayout is ddMMyyyyHHmmss in Go layout notation.
	SnapshotKeyLayout = "02012006150405"
	snapshotKeyBase   = "joined_weather_data_"
)

// SnapshotHandle describes one successful publish.
type SnapshotHandle struct {
	Key         string    `json:"key"`
	LatestPath  string    `json:"latest_path"`
	Rows        int       `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SnapshotKey names the immutable export generated at t. The prefix is
// prepended verbatim, so callers include any trailing slash.
func SnapshotKey(prefix string, t time.Time) string {
	return prefix + snapshotKeyBase + t.Format(SnapshotKeyLayout) + ".csv"
}
