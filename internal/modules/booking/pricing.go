package booking

import (
	"math"

	"appointly/internal/domain"

	"github.com/google/uuid"
)

// MaxDurationMinutes bounds the length of a single appointment.
const MaxDurationMinutes = 24 * 60

// quote snapshots the selected services and derives the totals.
// Duration is weighted by quantity; when that is not positive the plain sum
// of the service durations is used instead.
func quote(selections []selection, rows []domain.BusinessService) ([]domain.ServiceLine, float64, int, error) {
	byID := make(map[uuid.UUID]domain.BusinessService, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	lines := make([]domain.ServiceLine, 0, len(selections))
	var total float64
	var weighted, plain int
	for _, sel := range selections {
		svc, ok := byID[sel.serviceID]
		if !ok {
			return nil, 0, 0, ErrServicesUnavailable
		}
		lines = append(lines, domain.ServiceLine{
			ID:              svc.ID,
			Name:            svc.Name,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
			Quantity:        sel.quantity,
		})
		if sel.quantity > 0 && svc.DurationMinutes > (MaxDurationMinutes-weighted)/sel.quantity {
			return nil, 0, 0, ErrDurationTooLong
		}
		total += svc.Price * float64(sel.quantity)
		weighted += svc.DurationMinutes * sel.quantity
		plain += svc.DurationMinutes
	}

	duration := weighted
	if duration <= 0 {
		duration = plain
	}
	if duration <= 0 {
		return nil, 0, 0, ErrNoDuration
	}
	return lines, roundMoney(total), duration, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
