package record

import (
	"encoding/json"
	"fmt"
)

// Payload is the closed tagged union of per-kind event bodies.
// Exactly one concrete payload type exists per EventKind; each carries
// only the fields that kind's rules or downstream consumers require.
type Payload interface {
	// Kind returns the event kind this payload belongs to.
	Kind() EventKind

	// BatchRefs returns the batch ids this payload references.
	// Empty for kinds that originate batches rather than reference them.
	BatchRefs() []string

	// canonical returns the digest input for this payload.
	// Values are constrained to canonical JSON types: fractional
	// numbers are rendered as decimal strings (see canonical.go).
	canonical() map[string]any
}

// QualityMetrics carries lab-measured quality figures.
// A nil QualityMetrics on a payload means "not measured"; presence
// triggers threshold checks during admission.
type QualityMetrics struct {
	MoisturePct       float64 `json:"moisture_pct"`
	ActiveCompoundPct float64 `json:"active_compound_pct"`
	PesticidePPM      float64 `json:"pesticide_ppm"`
	HeavyMetalsPPM    float64 `json:"heavy_metals_ppm"`
}

func (m *QualityMetrics) canonical() map[string]any {
	return map[string]any{
		"moisture_pct":        canonicalFloat(m.MoisturePct),
		"active_compound_pct": canonicalFloat(m.ActiveCompoundPct),
		"pesticide_ppm":       canonicalFloat(m.PesticidePPM),
		"heavy_metals_ppm":    canonicalFloat(m.HeavyMetalsPPM),
	}
}

// CollectionPayload records a harvest. The event's own id becomes the
// batch id that downstream processing and testing events reference.
type CollectionPayload struct {
	Species    string          `json:"species"`
	FarmerID   string          `json:"farmer_id"`
	QuantityKg float64         `json:"quantity_kg"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	Quality    *QualityMetrics `json:"quality,omitempty"`
}

func (p CollectionPayload) Kind() EventKind     { return KindCollection }
func (p CollectionPayload) BatchRefs() []string { return nil }

func (p CollectionPayload) canonical() map[string]any {
	obj := map[string]any{
		"species":     p.Species,
		"farmer_id":   p.FarmerID,
		"quantity_kg": canonicalFloat(p.QuantityKg),
		"latitude":    canonicalFloat(p.Latitude),
		"longitude":   canonicalFloat(p.Longitude),
	}
	if p.Quality != nil {
		obj["quality"] = p.Quality.canonical()
	}
	return obj
}

// Processing step sub-types with rule-enforced bounds.
const (
	StepDrying   = "drying"
	StepGrinding = "grinding"
)

// ProcessingPayload records a transformation applied to an existing batch.
type ProcessingPayload struct {
	BatchID      string  `json:"batch_id"`
	Step         string  `json:"step"`
	TemperatureC float64 `json:"temperature_c"`
	MeshSize     float64 `json:"mesh_size"`
}

func (p ProcessingPayload) Kind() EventKind     { return KindProcessing }
func (p ProcessingPayload) BatchRefs() []string { return []string{p.BatchID} }

func (p ProcessingPayload) canonical() map[string]any {
	return map[string]any{
		"batch_id":      p.BatchID,
		"step":          p.Step,
		"temperature_c": canonicalFloat(p.TemperatureC),
		"mesh_size":     canonicalFloat(p.MeshSize),
	}
}

// QualityTestPayload records a certified lab test against an existing batch.
type QualityTestPayload struct {
	BatchID string          `json:"batch_id"`
	LabID   string          `json:"lab_id"`
	Quality *QualityMetrics `json:"quality,omitempty"`
}

func (p QualityTestPayload) Kind() EventKind     { return KindQualityTest }
func (p QualityTestPayload) BatchRefs() []string { return []string{p.BatchID} }

func (p QualityTestPayload) canonical() map[string]any {
	obj := map[string]any{
		"batch_id": p.BatchID,
		"lab_id":   p.LabID,
	}
	if p.Quality != nil {
		obj["quality"] = p.Quality.canonical()
	}
	return obj
}

// ManufacturingPayload records finished goods produced from source batches.
type ManufacturingPayload struct {
	ProductName string   `json:"product_name"`
	BatchIDs    []string `json:"batch_ids"`
	Units       int64    `json:"units"`
}

func (p ManufacturingPayload) Kind() EventKind     { return KindManufacturing }
func (p ManufacturingPayload) BatchRefs() []string { return p.BatchIDs }

func (p ManufacturingPayload) canonical() map[string]any {
	batches := make([]any, len(p.BatchIDs))
	for i, id := range p.BatchIDs {
		batches[i] = id
	}
	return map[string]any{
		"product_name": p.ProductName,
		"batch_ids":    batches,
		"units":        p.Units,
	}
}

// CompliancePayload records a regulator attestation over a batch.
type CompliancePayload struct {
	BatchID   string `json:"batch_id"`
	Authority string `json:"authority"`
	Notes     string `json:"notes,omitempty"`
}

func (p CompliancePayload) Kind() EventKind     { return KindCompliance }
func (p CompliancePayload) BatchRefs() []string { return []string{p.BatchID} }

func (p CompliancePayload) canonical() map[string]any {
	return map[string]any{
		"batch_id":  p.BatchID,
		"authority": p.Authority,
		"notes":     p.Notes,
	}
}

// DecodePayload unmarshals a JSON-encoded payload of the given kind into
// its concrete type. Used by the archive store when reloading events.
func DecodePayload(kind EventKind, data []byte) (Payload, error) {
	switch kind {
	case KindCollection:
		var p CollectionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindProcessing:
		var p ProcessingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindQualityTest:
		var p QualityTestPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindManufacturing:
		var p ManufacturingPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindCompliance:
		var p CompliancePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("decode payload: unknown kind %q", kind)
	}
}
