// Package radar computes NOAA radar tile URL templates and frame timestamps.
// Everything here is a pure function of its inputs; no network calls are made.
package radar

import (
	"fmt"
	"time"
)

// Product selects a radar tile layer.
type Product string

// Supported radar products. Unknown products fall back to ProductStandard.
const (
	ProductStandard         Product = "standard"
	ProductMRMSReflectivity Product = "mrms_reflectivity"
	ProductMRMSRotation     Product = "mrms_rotation"
	ProductMRMSPrecip       Product = "mrms_precip"
)

// ProductInfo describes one selectable radar layer for presentation.
type ProductInfo struct {
	ID          Product `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

const (
	frameStep   = 5 * time.Minute
	historySpan = 2 * time.Hour
)

var productPaths = map[Product]string{
	ProductStandard:         "ridge/standard",
	ProductMRMSReflectivity: "mrms/cref",
	ProductMRMSRotation:     "mrms/rot",
	ProductMRMSPrecip:       "mrms/qpe",
}

// TileURL returns a slippy-map tile URL template ({z}/{x}/{y} placeholders)
// for the given product at the given time. A zero time means now. The
// timestamp is truncated to the 5-minute frame boundary in UTC. Unknown
// products fall back to the standard reflectivity layer.
func TileURL(t time.Time, product Product) string {
	if t.IsZero() {
		t = time.Now()
	}
	path, ok := productPaths[product]
	if !ok {
		path = productPaths[ProductStandard]
	}
	stamp := t.UTC().Truncate(frameStep).Format("200601021504")
	return fmt.Sprintf("https://tiles.radar.weather.gov/tiles/%s/%s/CONUS-LARGE/{z}/{x}/{y}.png", path, stamp)
}

// Timestamps returns the available radar frame times: the last 2 hours in
// 5-minute steps, oldest first, as RFC 3339 strings.
func Timestamps() []string {
	return timestampsAt(time.Now())
}

func timestampsAt(now time.Time) []string {
	end := now.UTC().Truncate(frameStep)
	start := end.Add(-historySpan)
	out := make([]string, 0, int(historySpan/frameStep)+1)
	for t := start; !t.After(end); t = t.Add(frameStep) {
		out = append(out, t.Format(time.RFC3339))
	}
	return out
}

// Products lists the selectable radar layers.
func Products() []ProductInfo {
	return []ProductInfo{
		{ID: ProductStandard, Name: "Standard Reflectivity", Description: "Basic radar view showing precipitation intensity"},
		{ID: ProductMRMSReflectivity, Name: "High-Res Composite", Description: "Detailed multi-radar precipitation view"},
		{ID: ProductMRMSRotation, Name: "Storm Rotation", Description: "Shows areas of rotating storms"},
		{ID: ProductMRMSPrecip, Name: "Precipitation", Description: "Estimated rainfall amounts"},
	}
}
