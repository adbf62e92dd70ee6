package dto

import "encoding/json"

// DetectionRecord is one (bounding box, category) result. Field order is the
// output order.
type DetectionRecord struct {
	CategoryName string  `json:"category_name"`
	Score        float64 `json:"score"`
	OriginX      int     `json:"origin_x"`
	OriginY      int     `json:"origin_y"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
}

// EncodeRecords renders records as a pretty-printed JSON array. A nil or empty
// slice becomes "[]".
func EncodeRecords(records []DetectionRecord) ([]byte, error) {
	if records == nil {
		records = []DetectionRecord{}
	}
	return json.MarshalIndent(records, "", "    ")
}
