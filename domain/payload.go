package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"gimp-server/errors"
)

// UpdatePayload is a partial update as sent by a client. Every field
// is a pointer: nil means "not provided", a non-nil zero value (0,
// false, "") is a real value and overwrites what the member holds.
// Unknown JSON fields are ignored by the decoder, which keeps older
// servers compatible with newer clients.
type UpdatePayload struct {
	Name         string           `json:"name" validate:"required"`
	Location     *LocationPayload `json:"location"`
	HP           *float64         `json:"hp"`
	HPMax        *float64         `json:"hpMax"`
	Prayer       *float64         `json:"prayer"`
	PrayerMax    *float64         `json:"prayerMax"`
	CustomStatus *string          `json:"customStatus"`
	Notes        *string          `json:"notes"`
	GhostMode    *bool            `json:"ghostMode"`
	LastActivity *string          `json:"lastActivity" validate:"omitempty,min=1"`
}

// LocationPayload must carry all three coordinates or the whole
// update is rejected; a partial triple is never applied.
type LocationPayload struct {
	X     *float64 `json:"x" validate:"required"`
	Y     *float64 `json:"y" validate:"required"`
	Plane *float64 `json:"plane" validate:"required"`
}

var validate = validator.New()

// MergeEngine validates a payload and applies it to a member,
// field by field, presence based. Callers serialize Apply per member
// so readers never observe a half-merged state.
type MergeEngine struct{}

func NewMergeEngine() MergeEngine { return MergeEngine{} }

// Validate rejects the whole payload on the first invalid field.
// It returns a ValidationError naming the offending field.
func (MergeEngine) Validate(p UpdatePayload) error {
	if p.Name == "" {
		return errors.ErrMissingMemberName
	}
	if err := validate.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.ValidationError{
				Field:  fieldName(fe),
				Reason: fmt.Sprintf("failed %q check", fe.Tag()),
			}
		}
		return errors.ValidationError{Field: "payload", Reason: err.Error()}
	}
	return nil
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "X":
		return "location.x"
	case "Y":
		return "location.y"
	case "Plane":
		return "location.plane"
	case "Name":
		return "name"
	case "LastActivity":
		return "lastActivity"
	}
	return fe.Field()
}

// Apply mutates the member with exactly the fields the payload
// carries. The payload must have passed Validate first.
func (MergeEngine) Apply(m *Member, p UpdatePayload) {
	if p.Location != nil {
		m.Location = &Location{
			X:     int(*p.Location.X),
			Y:     int(*p.Location.Y),
			Plane: int(*p.Location.Plane),
		}
	}
	if p.HP != nil {
		m.HP = int(*p.HP)
	}
	if p.HPMax != nil {
		m.HPMax = int(*p.HPMax)
	}
	if p.Prayer != nil {
		m.Prayer = int(*p.Prayer)
	}
	if p.PrayerMax != nil {
		m.PrayerMax = int(*p.PrayerMax)
	}
	if p.CustomStatus != nil {
		m.CustomStatus = truncate(*p.CustomStatus, MaxNoteLength)
	}
	if p.Notes != nil {
		m.Notes = truncate(*p.Notes, MaxNoteLength)
	}
	if p.GhostMode != nil {
		m.GhostMode = *p.GhostMode
		// The client stops sending its location while ghosted, so the
		// stale one is dropped, not hidden.
		if m.GhostMode {
			m.Location = nil
		}
	}
	if p.LastActivity != nil {
		m.LastActivity = *p.LastActivity
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// PayloadFromMember rebuilds the full-field payload that, replayed
// through the merge engine, reproduces the stored member. Used when
// rehydrating a durable snapshot so restored entries pass through the
// exact same invariants as live updates.
func PayloadFromMember(m Member) UpdatePayload {
	p := UpdatePayload{
		Name:         m.Name,
		HP:           lo.ToPtr(float64(m.HP)),
		HPMax:        lo.ToPtr(float64(m.HPMax)),
		Prayer:       lo.ToPtr(float64(m.Prayer)),
		PrayerMax:    lo.ToPtr(float64(m.PrayerMax)),
		CustomStatus: lo.ToPtr(m.CustomStatus),
		Notes:        lo.ToPtr(m.Notes),
		GhostMode:    lo.ToPtr(m.GhostMode),
	}
	if m.LastActivity != "" {
		p.LastActivity = lo.ToPtr(m.LastActivity)
	}
	if m.Location != nil && !m.GhostMode {
		p.Location = &LocationPayload{
			X:     lo.ToPtr(float64(m.Location.X)),
			Y:     lo.ToPtr(float64(m.Location.Y)),
			Plane: lo.ToPtr(float64(m.Location.Plane)),
		}
	}
	return p
}
