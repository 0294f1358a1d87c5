package models

import (
	"encoding/json"
	"time"
)

// Order is a cart item: the layout payload plus the rendered artifacts
// that go with it.
type Order struct {
	ID         string          `json:"id" parquet:"id"`
	Payload    json.RawMessage `json:"payload" parquet:"payload"`
	PreviewRef string          `json:"preview_ref" parquet:"preview_ref"`
	PDFRef     string          `json:"pdf_ref" parquet:"pdf_ref"`
	SizePx     int64           `json:"size_px" parquet:"size_px"`
	WidthMM    float64         `json:"width_mm" parquet:"width_mm"`
	HeightMM   float64         `json:"height_mm" parquet:"height_mm"`
	CreatedAt  time.Time       `json:"created_at" parquet:"created_at"`
}

// Upload describes a stored image.
type Upload struct {
	AttachmentID string `json:"attachment_id"`
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Slot         string `json:"slot,omitempty"`
}
