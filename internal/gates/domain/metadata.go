package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Metadata is the stage-specific payload of a gate. Each stage has its own
// variant; RawMetadata carries payloads of stages this build does not know.
//
// Every variant keeps JSON keys it does not model in Extra so that a payload
// written by a newer client survives an autosave by an older one.
type Metadata interface {
	Stage() Stage
}

// AffectedArea is a room or area recorded during intake.
type AffectedArea struct {
	Name        string   `json:"name"`
	DamageTypes []string `json:"damageTypes"`
}

// MoistureReading is a single meter reading.
type MoistureReading struct {
	Location string  `json:"location"`
	Material string  `json:"material"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

// EquipmentEntry is a piece of drying equipment placed on site.
type EquipmentEntry struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Location string `json:"location,omitempty"`
}

// Measurement is a room dimension captured for scope.
type Measurement struct {
	Room   string  `json:"room"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height,omitempty"`
	Unit   string  `json:"unit"`
}

type ArrivalMetadata struct {
	Notes string                     `json:"notes"`
	Extra map[string]json.RawMessage `json:"-"`
}

type IntakeMetadata struct {
	CustomerName  string                     `json:"customerName"`
	CustomerPhone string                     `json:"customerPhone"`
	CustomerEmail string                     `json:"customerEmail"`
	LossType      string                     `json:"lossType"`
	AffectedAreas []AffectedArea             `json:"affectedAreas"`
	Extra         map[string]json.RawMessage `json:"-"`
}

type PhotosMetadata struct {
	Notes string                     `json:"notes"`
	Extra map[string]json.RawMessage `json:"-"`
}

type MoistureEquipmentMetadata struct {
	Readings  []MoistureReading          `json:"readings"`
	Equipment []EquipmentEntry           `json:"equipment"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type ScopeMetadata struct {
	Rooms        []string                   `json:"rooms"`
	DamageTypes  []string                   `json:"damageTypes"`
	Measurements []Measurement              `json:"measurements"`
	Extra        map[string]json.RawMessage `json:"-"`
}

type SignoffsMetadata struct {
	Signature   string `json:"signature"`
	SignedBy    string `json:"signedBy"`
	ClaimNumber string `json:"claimNumber"`
	CustomerPay bool   `json:"customerPay"`
	NextSteps   string `json:"nextSteps"`
	// SignatureFingerprint is set on completion from the signature payload.
	SignatureFingerprint string                     `json:"signatureFingerprint,omitempty"`
	SignedAt             *time.Time                 `json:"signedAt,omitempty"`
	Extra                map[string]json.RawMessage `json:"-"`
}

type DepartureMetadata struct {
	EquipmentStatus string                     `json:"equipmentStatus"`
	JobStatus       string                     `json:"jobStatus"`
	Notes           string                     `json:"notes"`
	Extra           map[string]json.RawMessage `json:"-"`
}

// RawMetadata holds the payload of an unrecognised stage verbatim.
type RawMetadata struct {
	StageName Stage
	Fields    map[string]json.RawMessage
}

func (*ArrivalMetadata) Stage() Stage           { return StageArrival }
func (*IntakeMetadata) Stage() Stage            { return StageIntake }
func (*PhotosMetadata) Stage() Stage            { return StagePhotos }
func (*MoistureEquipmentMetadata) Stage() Stage { return StageMoistureEquipment }
func (*ScopeMetadata) Stage() Stage             { return StageScope }
func (*SignoffsMetadata) Stage() Stage          { return StageSignoffs }
func (*DepartureMetadata) Stage() Stage         { return StageDeparture }
func (m *RawMetadata) Stage() Stage             { return m.StageName }

// NewMetadata returns the empty variant for a stage.
func NewMetadata(stage Stage) Metadata {
	switch stage {
	case StageArrival:
		return &ArrivalMetadata{}
	case StageIntake:
		return &IntakeMetadata{}
	case StagePhotos:
		return &PhotosMetadata{}
	case StageMoistureEquipment:
		return &MoistureEquipmentMetadata{}
	case StageScope:
		return &ScopeMetadata{}
	case StageSignoffs:
		return &SignoffsMetadata{}
	case StageDeparture:
		return &DepartureMetadata{}
	default:
		return &RawMetadata{StageName: stage}
	}
}

// DecodeMetadata parses a stored or submitted payload into the variant for
// stage. Empty input and JSON null decode to the empty variant.
func DecodeMetadata(stage Stage, data []byte) (Metadata, error) {
	m := NewMetadata(stage)
	if isEmptyJSON(data) {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", stage, err)
	}
	return m, nil
}

// EncodeMetadata serialises a payload. A nil payload encodes as {}.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil || reflect.ValueOf(m).IsNil() {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *ArrivalMetadata) UnmarshalJSON(data []byte) error {
	type plain ArrivalMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m ArrivalMetadata) MarshalJSON() ([]byte, error) {
	type plain ArrivalMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *IntakeMetadata) UnmarshalJSON(data []byte) error {
	type plain IntakeMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m IntakeMetadata) MarshalJSON() ([]byte, error) {
	type plain IntakeMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *PhotosMetadata) UnmarshalJSON(data []byte) error {
	type plain PhotosMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m PhotosMetadata) MarshalJSON() ([]byte, error) {
	type plain PhotosMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *MoistureEquipmentMetadata) UnmarshalJSON(data []byte) error {
	type plain MoistureEquipmentMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m MoistureEquipmentMetadata) MarshalJSON() ([]byte, error) {
	type plain MoistureEquipmentMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *ScopeMetadata) UnmarshalJSON(data []byte) error {
	type plain ScopeMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m ScopeMetadata) MarshalJSON() ([]byte, error) {
	type plain ScopeMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *SignoffsMetadata) UnmarshalJSON(data []byte) error {
	type plain SignoffsMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m SignoffsMetadata) MarshalJSON() ([]byte, error) {
	type plain SignoffsMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *DepartureMetadata) UnmarshalJSON(data []byte) error {
	type plain DepartureMetadata
	extra, err := decodeObject(data, (*plain)(m))
	m.Extra = extra
	return err
}

func (m DepartureMetadata) MarshalJSON() ([]byte, error) {
	type plain DepartureMetadata
	return encodeObject(plain(m), m.Extra)
}

func (m *RawMetadata) UnmarshalJSON(data []byte) error {
	if isEmptyJSON(data) {
		m.Fields = nil
		return nil
	}
	return json.Unmarshal(data, &m.Fields)
}

func (m RawMetadata) MarshalJSON() ([]byte, error) {
	if m.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.Fields)
}

// decodeObject fills dst from data and returns the keys dst does not model.
// Key matching follows encoding/json and is case-insensitive.
func decodeObject(data []byte, dst any) (map[string]json.RawMessage, error) {
	if isEmptyJSON(data) {
		return nil, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	known := knownKeys(reflect.TypeOf(dst).Elem())
	for key := range all {
		if known[strings.ToLower(key)] {
			delete(all, key)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// encodeObject marshals src and merges extra into the resulting object.
// Modelled fields win over extra keys of the same name.
func encodeObject(src any, extra map[string]json.RawMessage) ([]byte, error) {
	encoded, err := json.Marshal(src)
	if err != nil || len(extra) == 0 {
		return encoded, err
	}

	merged := make(map[string]json.RawMessage, len(extra)+8)
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

func knownKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		keys[strings.ToLower(name)] = true
	}
	return keys
}

func isEmptyJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
