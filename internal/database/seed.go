package database

import (
	"context"
	"fmt"
	"time"

	"appointly/internal/domain"
	"appointly/internal/repository"

	"gorm.io/gorm"
)

// Demo is the data set written by SeedDemo.
type Demo struct {
	Owner        domain.Profile
	Customer     domain.Profile
	StaffProfile domain.Profile
	Outsider     domain.Profile

	Business  domain.Business
	Haircut   domain.BusinessService
	Colouring domain.BusinessService
	Retired   domain.BusinessService
	Staff     domain.Staff

	// Day is the UTC midnight the availability windows are opened on.
	Day time.Time
}

// OpensAt returns Day at the given UTC hour and minute.
func (d *Demo) OpensAt(hour, minute int) time.Time {
	return d.Day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// SeedDemo writes one published business with two bookable services, a
// retired one, a staff member and a 09:00-18:00 window on day (business-wide
// and staff-scoped).
func SeedDemo(ctx context.Context, db *gorm.DB, day time.Time) (*Demo, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	d := &Demo{Day: day}

	err := repository.NewStore(db).Transaction(ctx, func(tx *repository.Store) error {
		d.Owner = domain.Profile{FullName: strPtr("Olivia Owner"), FCMToken: strPtr("owner-device")}
		d.Customer = domain.Profile{FullName: strPtr("Carl Customer"), FCMToken: strPtr("customer-device")}
		d.StaffProfile = domain.Profile{FullName: strPtr("Sam Stylist"), FCMToken: strPtr("staff-device")}
		d.Outsider = domain.Profile{FullName: strPtr("Oscar Outsider")}
		for _, p := range []*domain.Profile{&d.Owner, &d.Customer, &d.StaffProfile, &d.Outsider} {
			if err := tx.Profiles.Create(ctx, p); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
		}

		d.Business = domain.Business{OwnerID: d.Owner.ID, Name: "Downtown Barbers", Published: true}
		if err := tx.Businesses.Create(ctx, &d.Business); err != nil {
			return fmt.Errorf("create business: %w", err)
		}

		d.Haircut = domain.BusinessService{BusinessID: d.Business.ID, Name: "Haircut", Price: 100, DurationMinutes: 30, Active: true}
		d.Colouring = domain.BusinessService{BusinessID: d.Business.ID, Name: "Colouring", Price: 45.5, DurationMinutes: 45, Active: true}
		d.Retired = domain.BusinessService{BusinessID: d.Business.ID, Name: "Hot towel", Price: 10, DurationMinutes: 10}
		for _, s := range []*domain.BusinessService{&d.Haircut, &d.Colouring, &d.Retired} {
			if err := tx.Services.Create(ctx, s); err != nil {
				return fmt.Errorf("create service: %w", err)
			}
		}

		d.Staff = domain.Staff{BusinessID: d.Business.ID, ProfileID: &d.StaffProfile.ID, Active: true}
		if err := tx.Staff.Create(ctx, &d.Staff); err != nil {
			return fmt.Errorf("create staff: %w", err)
		}

		windows := []*domain.Availability{
			{BusinessID: d.Business.ID, StartsAt: d.OpensAt(9, 0), EndsAt: d.OpensAt(18, 0)},
			{BusinessID: d.Business.ID, StaffID: &d.Staff.ID, StartsAt: d.OpensAt(9, 0), EndsAt: d.OpensAt(18, 0)},
		}
		for _, w := range windows {
			if err := tx.Availability.Create(ctx, w); err != nil {
				return fmt.Errorf("create availability: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func strPtr(s string) *string { return &s }
