package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/internal/app/storage/memory"
)

func validPackage() catalog.Package {
	return catalog.Package{
		Name:         "Growth",
		Description:  "Mid-term growth plan",
		MinAmount:    decimal.NewFromInt(500),
		MaxAmount:    decimal.NewFromInt(50000),
		DurationDays: 30,
		ROIPercent:   decimal.NewFromInt(15),
		RiskLevel:    catalog.RiskMedium,
		Features:     []string{"daily accrual", "auto payout"},
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	cases := map[string]func(*catalog.Package){
		"empty name":    func(p *catalog.Package) { p.Name = " " },
		"negative min":  func(p *catalog.Package) { p.MinAmount = decimal.NewFromInt(-1) },
		"max below min": func(p *catalog.Package) { p.MaxAmount = decimal.NewFromInt(100) },
		"zero duration": func(p *catalog.Package) { p.DurationDays = 0 },
		"roi above 100": func(p *catalog.Package) { p.ROIPercent = decimal.NewFromInt(101) },
		"unknown risk":  func(p *catalog.Package) { p.RiskLevel = "extreme" },
		"negative roi":  func(p *catalog.Package) { p.ROIPercent = decimal.NewFromInt(-5) },
	}
	for name, mutate := range cases {
		pkg := validPackage()
		mutate(&pkg)
		if _, err := svc.Create(ctx, pkg); !errors.Is(err, ErrInvalidPackage) {
			t.Errorf("%s: got %v, want ErrInvalidPackage", name, err)
		}
	}

	created, err := svc.Create(ctx, validPackage())
	if err != nil {
		t.Fatalf("valid package rejected: %v", err)
	}
	if !created.Active {
		t.Fatal("new package should be active")
	}
	if created.ID == "" {
		t.Fatal("package id not assigned")
	}
}

func TestService_ActiveFilter(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, validPackage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second := validPackage()
	second.Name = "Premium"
	if _, err := svc.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if _, err := svc.SetActive(ctx, first.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	all, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all packages = %d, want 2", len(all))
	}
	active, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Premium" {
		t.Fatalf("active filter returned %d packages", len(active))
	}
}

func TestService_UpdatePreservesActivation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	pkg, err := svc.Create(ctx, validPackage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetActive(ctx, pkg.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	pkg.ROIPercent = decimal.NewFromInt(20)
	updated, err := svc.Update(ctx, pkg)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatal("update must not re-activate a disabled package")
	}
	if !updated.ROIPercent.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("roi = %s, want 20", updated.ROIPercent)
	}
}

func TestService_Delete(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	pkg, err := svc.Create(ctx, validPackage())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, pkg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, pkg.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
	if err := svc.Delete(ctx, pkg.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}
