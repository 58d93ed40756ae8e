package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"appointly/internal/pkg/validator"

	"github.com/google/uuid"
)

// BookRequest is the booking payload as received from a client.
type BookRequest struct {
	CustomerID  string             `json:"customer_id" validate:"required,uuid"`
	BusinessID  string             `json:"business_id" validate:"required,uuid"`
	StaffID     *string            `json:"staff_id" validate:"omitempty,uuid"`
	Services    []ServiceSelection `json:"services" validate:"required,min=1,dive"`
	ScheduledAt string             `json:"scheduled_at" validate:"required"`
	Notes       *string            `json:"notes"`
}

// MaxQuantity caps the quantity of one service, after repeated ids are merged.
const MaxQuantity = 100

// ServiceSelection accepts either a bare service id or {id, quantity}.
// A missing quantity means 1.
type ServiceSelection struct {
	ID       string `json:"id" validate:"required,uuid"`
	Quantity *int   `json:"quantity,omitempty" validate:"omitempty,min=1,max=100"`
}

func (s *ServiceSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*s = ServiceSelection{ID: id}
		return nil
	}

	var obj struct {
		ID       string `json:"id"`
		Quantity *int   `json:"quantity"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("service must be an id or an {id, quantity} object: %w", err)
	}
	*s = ServiceSelection{ID: obj.ID, Quantity: obj.Quantity}
	return nil
}

func (s ServiceSelection) quantity() int {
	if s.Quantity == nil {
		return 1
	}
	return *s.Quantity
}

type selection struct {
	serviceID uuid.UUID
	quantity  int
}

type bookInput struct {
	customerID  uuid.UUID
	businessID  uuid.UUID
	staffID     *uuid.UUID
	selections  []selection
	scheduledAt time.Time
	notes       *string
}

// serviceIDs lists the distinct selected ids in request order.
func (in bookInput) serviceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(in.selections))
	for _, s := range in.selections {
		ids = append(ids, s.serviceID)
	}
	return ids
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// parseInstant reads an ISO-8601 timestamp. A value without an offset is
// taken as UTC.
func parseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalize validates the request and resolves it into typed values.
// Repeated service ids are merged by summing their quantities.
func (r BookRequest) normalize() (bookInput, error) {
	if strings.TrimSpace(r.CustomerID) == "" || strings.TrimSpace(r.BusinessID) == "" ||
		strings.TrimSpace(r.ScheduledAt) == "" || len(r.Services) == 0 {
		return bookInput{}, ErrMissingFields
	}
	if r.StaffID != nil && strings.TrimSpace(*r.StaffID) == "" {
		r.StaffID = nil
	}
	if errs := validator.Validate(r); errs != nil {
		return bookInput{}, ErrInvalidRequest.WithDetails(errs)
	}

	scheduledAt, ok := parseInstant(r.ScheduledAt)
	if !ok {
		return bookInput{}, ErrInvalidScheduledAt
	}

	in := bookInput{
		customerID:  uuid.MustParse(r.CustomerID),
		businessID:  uuid.MustParse(r.BusinessID),
		scheduledAt: scheduledAt,
		notes:       r.Notes,
	}
	if r.StaffID != nil {
		id := uuid.MustParse(*r.StaffID)
		in.staffID = &id
	}

	index := make(map[uuid.UUID]int, len(r.Services))
	for n, s := range r.Services {
		id := uuid.MustParse(s.ID)
		if i, seen := index[id]; seen {
			in.selections[i].quantity += s.quantity()
			if in.selections[i].quantity > MaxQuantity {
				return bookInput{}, ErrInvalidRequest.WithDetails(map[string]string{
					fmt.Sprintf("services[%d].quantity", n): "max",
				})
			}
			continue
		}
		index[id] = len(in.selections)
		in.selections = append(in.selections, selection{serviceID: id, quantity: s.quantity()})
	}
	return in, nil
}
