package ingest

import (
	"encoding/json"
	"fmt"
	"os"
)

// highlightFile mirrors one "<stem>_highlights.json" extract: the source
// document path plus the highlights pulled from it.
type highlightFile struct {
	File       string      `json:"file"`
	Highlights []highlight `json:"highlights"`
}

type highlight struct {
	Page     int    `json:"page"`
	Text     string `json:"text"`
	Keywords string `json:"keywords"`
}

func readHighlightFile(path string) (*highlightFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read extract: %w", err)
	}
	var hf highlightFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("failed to parse extract: %w", err)
	}
	return &hf, nil
}
