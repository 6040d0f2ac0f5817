package repo

import (
	"encoding/json"
	"fmt"

	"strata/pkg/cas"
)

// encodeLayer/decodeLayer and encodePlatform/decodePlatform isolate the
// JSON persistence format for aggregates from cas's in-memory types,
// persisting each aggregate as a plain JSON document.

func encodeLayer(l *cas.Layer) ([]byte, error) {
	return json.Marshal(l)
}

func decodeLayer(data []byte) (*cas.Layer, error) {
	var l cas.Layer
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layer: %w", err)
	}
	return &l, nil
}

func encodePlatform(p *cas.Platform) ([]byte, error) {
	return json.Marshal(p)
}

func decodePlatform(data []byte) (*cas.Platform, error) {
	var p cas.Platform
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode platform: %w", err)
	}
	return &p, nil
}
