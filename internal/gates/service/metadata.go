package service

import (
	"context"
	"encoding/json"
	"strings"

	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/platform/apperr"
	"fieldgate_backend/platform/phone"
	"fieldgate_backend/platform/sanitize"

	"github.com/google/uuid"
)

// SaveMetadata is the autosave path. It overwrites the gate's stage payload
// and opens a pending gate; it never completes or skips one. Resolved gates
// still accept metadata so late edits made offline are not lost.
func (s *Service) SaveMetadata(ctx context.Context, gateID, actorID uuid.UUID, payload json.RawMessage) (*domain.Gate, error) {
	gate, _, err := s.loadForMutation(ctx, gateID, actorID, true)
	if err != nil {
		return nil, err
	}

	metadata, err := domain.DecodeMetadata(gate.Stage, payload)
	if err != nil {
		return nil, apperr.BadRequest("metadata does not match the gate's stage").WithDetails(err.Error())
	}
	normalizeMetadata(metadata, s.validators.Phones())
	keepServerFields(gate.Metadata, metadata)

	updated, err := s.store.UpdateGate(ctx, gate.ID, domain.GatePatch{
		Metadata:      metadata,
		OpenIfPending: true,
	})
	if err != nil {
		return nil, mapError(err)
	}

	if updated.Status != gate.Status {
		s.log.GateTransition(updated.ID.String(), updated.JobID.String(), string(updated.Stage), string(updated.Status), actorID.String())
	}
	return updated, nil
}

// normalizeMetadata cleans free text and canonicalises contact details.
func normalizeMetadata(m domain.Metadata, phones phone.Numbers) {
	switch v := m.(type) {
	case *domain.ArrivalMetadata:
		v.Notes = sanitize.Text(v.Notes)
	case *domain.IntakeMetadata:
		v.CustomerName = sanitize.Text(v.CustomerName)
		v.CustomerPhone = phones.NormalizeE164(v.CustomerPhone)
		v.CustomerEmail = strings.ToLower(strings.TrimSpace(v.CustomerEmail))
		v.LossType = sanitize.Text(v.LossType)
		for i := range v.AffectedAreas {
			v.AffectedAreas[i].Name = sanitize.Text(v.AffectedAreas[i].Name)
			v.AffectedAreas[i].DamageTypes = sanitize.Strings(v.AffectedAreas[i].DamageTypes)
		}
	case *domain.PhotosMetadata:
		v.Notes = sanitize.Text(v.Notes)
	case *domain.MoistureEquipmentMetadata:
		for i := range v.Readings {
			v.Readings[i].Location = sanitize.Text(v.Readings[i].Location)
			v.Readings[i].Material = sanitize.Text(v.Readings[i].Material)
		}
		for i := range v.Equipment {
			v.Equipment[i].Type = sanitize.Text(v.Equipment[i].Type)
			v.Equipment[i].Location = sanitize.Text(v.Equipment[i].Location)
		}
	case *domain.ScopeMetadata:
		v.Rooms = sanitize.Strings(v.Rooms)
		v.DamageTypes = sanitize.Strings(v.DamageTypes)
		for i := range v.Measurements {
			v.Measurements[i].Room = sanitize.Text(v.Measurements[i].Room)
		}
	case *domain.SignoffsMetadata:
		v.SignedBy = sanitize.Text(v.SignedBy)
		v.ClaimNumber = sanitize.Text(v.ClaimNumber)
		v.NextSteps = sanitize.Text(v.NextSteps)
	case *domain.DepartureMetadata:
		v.EquipmentStatus = sanitize.Text(v.EquipmentStatus)
		v.JobStatus = strings.TrimSpace(v.JobStatus)
		v.Notes = sanitize.Text(v.Notes)
	}
}

// keepServerFields carries fields only the server may set from the stored
// payload into the incoming one.
func keepServerFields(stored, incoming domain.Metadata) {
	next, ok := incoming.(*domain.SignoffsMetadata)
	if !ok {
		return
	}
	next.SignatureFingerprint = ""
	next.SignedAt = nil
	if prev, ok := stored.(*domain.SignoffsMetadata); ok && prev != nil {
		next.SignatureFingerprint = prev.SignatureFingerprint
		next.SignedAt = prev.SignedAt
	}
}
