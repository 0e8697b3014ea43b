package models

// Destination 下一目的地（每次解析重新生成，不持久化）
type Destination struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Building       string `json:"building"`
	Floor          string `json:"floor"`
	Room           string `json:"room"`
	Coordinates    *Point `json:"coordinates,omitempty"`
	LocationTagRef string `json:"location_tag_ref"`
	Description    string `json:"description,omitempty"`
}
