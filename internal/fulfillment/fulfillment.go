// SPDX-License-Identifier: MIT

// Package fulfillment grants what a paid cart bought. Each catalogue item
// type has one Fulfiller.
package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/payments"
)

// Fulfiller delivers one cart item.
type Fulfiller interface {
	Fulfill(ctx context.Context, cart *payments.Cart, item payments.CartItem) error
}

// FulfillerFunc adapts a function to Fulfiller.
type FulfillerFunc func(ctx context.Context, cart *payments.Cart, item payments.CartItem) error

// Fulfill calls f.
func (f FulfillerFunc) Fulfill(ctx context.Context, cart *payments.Cart, item payments.CartItem) error {
	return f(ctx, cart, item)
}

// Registry maps item types to fulfillers.
type Registry struct {
	byType map[payments.ItemType]Fulfiller
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[payments.ItemType]Fulfiller)}
}

// Register sets the fulfiller for t, replacing any previous one.
func (r *Registry) Register(t payments.ItemType, f Fulfiller) {
	r.byType[t] = f
}

// Fulfill dispatches every item of cart. It stops at the first failure.
func (r *Registry) Fulfill(ctx context.Context, cart *payments.Cart) error {
	for _, item := range cart.Items {
		f, ok := r.byType[item.Item.Type]
		if !ok {
			return fmt.Errorf("%w: Unsupported catalogue item type: %s", payments.ErrUnsupportedItem, item.Item.Type)
		}
		if err := f.Fulfill(ctx, cart, item); err != nil {
			return err
		}
	}
	return nil
}

// ErrCourseNotFound is returned when a paid course item has no course.
var ErrCourseNotFound = errors.New("CourseMode not found")

// EnrollmentStore persists enrollments.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, e payments.Enrollment) error
}

// CourseEnroller fulfills paid_course items by enrolling the cart owner.
type CourseEnroller struct {
	Store   EnrollmentStore
	Audit   *audit.Logger
	Gateway string
	Mode    string
}

// Fulfill enrolls the cart user into the item's course.
func (e *CourseEnroller) Fulfill(ctx context.Context, cart *payments.Cart, item payments.CartItem) error {
	mode := e.Mode
	if mode == "" {
		mode = "paid"
	}
	if item.Item.CourseID == "" {
		e.Audit.Payment(ctx, audit.ActionUserEnrolledError, cart.ID, e.Gateway, map[string]string{
			"sku":   item.Item.SKU,
			"error": ErrCourseNotFound.Error(),
		})
		return fmt.Errorf("item %s: %w", item.Item.SKU, ErrCourseNotFound)
	}

	if err := e.Store.CreateEnrollment(ctx, payments.Enrollment{
		UserID:   cart.User.ID,
		CourseID: item.Item.CourseID,
		Mode:     mode,
		CartID:   cart.ID,
	}); err != nil {
		e.Audit.Payment(ctx, audit.ActionUserEnrolledError, cart.ID, e.Gateway, map[string]string{
			"course_id": item.Item.CourseID,
			"error":     err.Error(),
		})
		return fmt.Errorf("enroll user %d in %s: %w", cart.User.ID, item.Item.CourseID, err)
	}

	e.Audit.Payment(ctx, audit.ActionUserEnrolled, cart.ID, e.Gateway, map[string]string{
		"course_id": item.Item.CourseID,
		"mode":      mode,
	})
	return nil
}
