// Package catalog manages the investment package catalog offered to
// accounts.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// ErrInvalidPackage reports a package failing validation.
var ErrInvalidPackage = errors.New("invalid package")

// Service manages investment packages.
type Service struct {
	store storage.PackageStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a catalog service.
func New(store storage.PackageStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Create adds a package to the catalog.
func (s *Service) Create(ctx context.Context, pkg catalog.Package) (catalog.Package, error) {
	if err := validate(pkg); err != nil {
		return catalog.Package{}, err
	}
	pkg.Active = true
	created, err := s.store.CreatePackage(ctx, pkg)
	if err != nil {
		return catalog.Package{}, err
	}
	s.log.WithField("package_id", created.ID).
		WithField("name", created.Name).
		Info("package created")
	return created, nil
}

// Update replaces the mutable fields of a package. Existing investments keep
// the terms they were opened under; valuation reads the package live, so rate
// changes apply from the next pass onward.
func (s *Service) Update(ctx context.Context, pkg catalog.Package) (catalog.Package, error) {
	if err := validate(pkg); err != nil {
		return catalog.Package{}, err
	}
	current, err := s.store.GetPackage(ctx, pkg.ID)
	if err != nil {
		return catalog.Package{}, err
	}
	pkg.Active = current.Active
	updated, err := s.store.UpdatePackage(ctx, pkg)
	if err != nil {
		return catalog.Package{}, err
	}
	s.log.WithField("package_id", updated.ID).Info("package updated")
	return updated, nil
}

// SetActive toggles whether a package accepts new investments.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (catalog.Package, error) {
	pkg, err := s.store.GetPackage(ctx, id)
	if err != nil {
		return catalog.Package{}, err
	}
	if pkg.Active == active {
		return pkg, nil
	}
	pkg.Active = active
	pkg, err = s.store.UpdatePackage(ctx, pkg)
	if err != nil {
		return catalog.Package{}, err
	}
	s.log.WithField("package_id", id).WithField("active", active).Info("package activation changed")
	return pkg, nil
}

// Get returns a package by ID.
func (s *Service) Get(ctx context.Context, id string) (catalog.Package, error) {
	return s.store.GetPackage(ctx, id)
}

// List returns packages, optionally only the active ones.
func (s *Service) List(ctx context.Context, onlyActive bool) ([]catalog.Package, error) {
	return s.store.ListPackages(ctx, onlyActive)
}

// Delete removes a package from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePackage(ctx, id); err != nil {
		return err
	}
	s.log.WithField("package_id", id).Info("package deleted")
	return nil
}

func validate(pkg catalog.Package) error {
	if strings.TrimSpace(pkg.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPackage)
	}
	if pkg.MinAmount.IsNegative() {
		return fmt.Errorf("%w: min amount must not be negative", ErrInvalidPackage)
	}
	if !pkg.MaxAmount.GreaterThan(pkg.MinAmount) {
		return fmt.Errorf("%w: max amount must exceed min amount", ErrInvalidPackage)
	}
	if pkg.DurationDays < 1 {
		return fmt.Errorf("%w: duration must be at least one day", ErrInvalidPackage)
	}
	if pkg.ROIPercent.IsNegative() || pkg.ROIPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: roi percent must be between 0 and 100", ErrInvalidPackage)
	}
	switch pkg.RiskLevel {
	case catalog.RiskLow, catalog.RiskMedium, catalog.RiskHigh:
	default:
		return fmt.Errorf("%w: unknown risk level %q", ErrInvalidPackage, pkg.RiskLevel)
	}
	return nil
}
