// Package domain contains pure business types shared by every layer.
// It depends on nothing inside the module.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ZoneID identifies a time-managed zone (a host world). It is an opaque,
// stable key: the registry never dereferences host objects through it.
type ZoneID struct {
	value string
}

// NewZoneID creates a ZoneID from a raw string, validating it is a valid UUID.
func NewZoneID(raw string) (ZoneID, error) {
	if raw == "" {
		return ZoneID{}, ErrEmptyID
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return ZoneID{}, fmt.Errorf("invalid zone ID %q: %w", raw, ErrInvalidID)
	}
	return ZoneID{value: parsed.String()}, nil
}

// MustZoneID creates a ZoneID, panicking on invalid input. Use only in tests.
func MustZoneID(raw string) ZoneID {
	id, err := NewZoneID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateZoneID creates a new random ZoneID.
func GenerateZoneID() ZoneID {
	return ZoneID{value: uuid.NewString()}
}

// ZoneIDFromName derives a deterministic ZoneID from a zone name, so zones
// configured by name keep the same key across restarts.
func ZoneIDFromName(name string) ZoneID {
	return ZoneID{value: uuid.NewSHA1(zoneNamespace, []byte(name)).String()}
}

func (id ZoneID) String() string { return id.value }
func (id ZoneID) IsZero() bool   { return id.value == "" }

// zoneNamespace scopes name-derived zone IDs.
var zoneNamespace = uuid.MustParse("6f1c7a52-3d0e-4b8e-9a55-0c1f2d7e9b41")

// PlayerID identifies a player in the host environment.
type PlayerID struct {
	value string
}

// NewPlayerID creates a PlayerID from a raw string, validating it is a valid UUID.
func NewPlayerID(raw string) (PlayerID, error) {
	if raw == "" {
		return PlayerID{}, ErrEmptyID
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return PlayerID{}, fmt.Errorf("invalid player ID %q: %w", raw, ErrInvalidID)
	}
	return PlayerID{value: parsed.String()}, nil
}

// MustPlayerID creates a PlayerID, panicking on invalid input. Use only in tests.
func MustPlayerID(raw string) PlayerID {
	id, err := NewPlayerID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GeneratePlayerID creates a new random PlayerID.
func GeneratePlayerID() PlayerID {
	return PlayerID{value: uuid.NewString()}
}

func (id PlayerID) String() string { return id.value }
func (id PlayerID) IsZero() bool   { return id.value == "" }
