// internal/viewer/event.go
package viewer

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent is returned for events that cannot be dispatched
var ErrInvalidEvent = errors.New("invalid viewer event")

// EventKind identifies a bridge event variant
type EventKind string

// Event kinds
const (
	EventLoad         EventKind = "load"
	EventSelectPart   EventKind = "select-part"
	EventSelectOption EventKind = "select-option"
	EventCameraTo     EventKind = "camera-to"
	EventViewMode     EventKind = "view-mode"
)

// ViewMode is the rendering surface shown to the shopper
type ViewMode string

// View modes
const (
	ViewMode3D    ViewMode = "3d"
	ViewModeImage ViewMode = "image"
)

// Event is a tagged message sent over the bridge.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind `json:"type"`
	ProductID string    `json:"product_id,omitempty"`
	ModelURL  string    `json:"model_url,omitempty"`
	MetaURL   string    `json:"meta_url,omitempty"`
	Code      string    `json:"code,omitempty"`
	Mode      ViewMode  `json:"mode,omitempty"`
}

// Validate checks that the fields required by the event kind are present
func (e Event) Validate() error {
	switch e.Kind {
	case EventLoad:
		if e.ProductID == "" {
			return fmt.Errorf("%w: load requires product_id", ErrInvalidEvent)
		}
	case EventSelectPart, EventSelectOption, EventCameraTo:
		if e.Code == "" {
			return fmt.Errorf("%w: %s requires code", ErrInvalidEvent, e.Kind)
		}
	case EventViewMode:
		if e.Mode != ViewMode3D && e.Mode != ViewModeImage {
			return fmt.Errorf("%w: unknown view mode %q", ErrInvalidEvent, e.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}
