// Package fleet keeps the bus, employee and trip registries.
package fleet

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/busops/internal/domain"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/store"
)

type Registry struct {
	store  store.Gateway
	logger observability.Logger
}

func NewRegistry(st store.Gateway, logger observability.Logger) *Registry {
	return &Registry{store: st, logger: logger}
}

func (r *Registry) ListBuses(ctx context.Context) ([]domain.Bus, error) {
	var buses []domain.Bus
	if err := r.store.Query(ctx, domain.CollectionBuses, nil, []store.Order{store.Asc("name")}, &buses); err != nil {
		return nil, errors.Wrap(err, "query buses")
	}
	return buses, nil
}

func (r *Registry) GetBus(ctx context.Context, id string) (*domain.Bus, error) {
	var bus domain.Bus
	if err := r.store.Get(ctx, domain.CollectionBuses, id, &bus); err != nil {
		return nil, errors.Wrap(err, "load bus")
	}
	return &bus, nil
}

func (r *Registry) CreateBus(ctx context.Context, bus domain.Bus) (*domain.Bus, error) {
	bus.ID = ""
	bus.Name = strings.TrimSpace(bus.Name)
	bus.PlateNumber = strings.TrimSpace(bus.PlateNumber)
	if err := bus.Validate(); err != nil {
		return nil, err
	}
	id, err := r.store.Create(ctx, domain.CollectionBuses, bus)
	if err != nil {
		return nil, errors.Wrap(err, "create bus")
	}
	bus.ID = id
	r.logger.WithField("bus_id", id).Info("bus registered")
	return &bus, nil
}

func (r *Registry) UpdateBus(ctx context.Context, id string, bus domain.Bus) (*domain.Bus, error) {
	bus.ID = id
	bus.Name = strings.TrimSpace(bus.Name)
	bus.PlateNumber = strings.TrimSpace(bus.PlateNumber)
	if err := bus.Validate(); err != nil {
		return nil, err
	}
	err := r.store.Update(ctx, domain.CollectionBuses, id, map[string]interface{}{
		"name":              bus.Name,
		"plateNumber":       bus.PlateNumber,
		"capacity":          bus.Capacity,
		"maintenanceStatus": bus.MaintenanceStatus,
		"assignedDriverId":  bus.AssignedDriverID,
		"imageUrl":          bus.ImageURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "update bus")
	}
	return &bus, nil
}

func (r *Registry) DeleteBus(ctx context.Context, id string) error {
	return errors.Wrap(r.store.Delete(ctx, domain.CollectionBuses, id), "delete bus")
}

func (r *Registry) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	if err := r.store.Query(ctx, domain.CollectionEmployees, nil, []store.Order{store.Asc("fullName")}, &employees); err != nil {
		return nil, errors.Wrap(err, "query employees")
	}
	return employees, nil
}

func (r *Registry) GetEmployee(ctx context.Context, id string) (*domain.Employee, error) {
	var e domain.Employee
	if err := r.store.Get(ctx, domain.CollectionEmployees, id, &e); err != nil {
		return nil, errors.Wrap(err, "load employee")
	}
	return &e, nil
}

// CreateEmployee registers an employee. The last paid date is only ever set
// by a payroll payment.
func (r *Registry) CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error) {
	e.ID = ""
	e.LastPaidDate = nil
	e.FullName = strings.TrimSpace(e.FullName)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	id, err := r.store.Create(ctx, domain.CollectionEmployees, e)
	if err != nil {
		return nil, errors.Wrap(err, "create employee")
	}
	e.ID = id
	r.logger.WithField("employee_id", id).Info("employee registered")
	return &e, nil
}

func (r *Registry) UpdateEmployee(ctx context.Context, id string, e domain.Employee) (*domain.Employee, error) {
	e.FullName = strings.TrimSpace(e.FullName)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	current, err := r.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.store.Update(ctx, domain.CollectionEmployees, id, map[string]interface{}{
		"fullName":        e.FullName,
		"role":            e.Role,
		"contactInfo":     e.ContactInfo,
		"salary":          e.Salary,
		"salaryPayday":    e.SalaryPayday,
		"profilePhotoUrl": e.ProfilePhotoURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "update employee")
	}
	e.ID = id
	e.LastPaidDate = current.LastPaidDate
	return &e, nil
}

func (r *Registry) DeleteEmployee(ctx context.Context, id string) error {
	return errors.Wrap(r.store.Delete(ctx, domain.CollectionEmployees, id), "delete employee")
}
