package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/patiponrmutl/ScanAttendance/apperr"
	"github.com/patiponrmutl/ScanAttendance/models"
	"github.com/patiponrmutl/ScanAttendance/storage"
)

// loadCatalog returns the stored catalog, seeding the defaults on first use.
func (e *Engine) loadCatalog(ctx context.Context, st storage.Store) (models.Catalog, error) {
	cat, err := st.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(cat) == 0 && len(e.defaults) > 0 {
		cat = e.defaults.Clone()
		if err := st.SaveCatalog(ctx, cat); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func (e *Engine) requirePartition(ctx context.Context, st storage.Store, p models.Partition) error {
	if !p.Valid() {
		return apperr.New(apperr.CodeInvalid, "stage and department are required")
	}
	cat, err := e.loadCatalog(ctx, st)
	if err != nil {
		return err
	}
	if !cat.Has(p) {
		return apperr.New(apperr.CodeInvalid, fmt.Sprintf("unknown partition %s", p))
	}
	return nil
}

func (e *Engine) Catalog(ctx context.Context) (models.Catalog, error) {
	var out models.Catalog
	err := e.do(ctx, func(ctx context.Context) error {
		cat, err := e.loadCatalog(ctx, e.st)
		out = cat.Clone()
		return err
	})
	return out, err
}

// Partitions lists every catalog partition, stages in lexical order.
func (e *Engine) Partitions(ctx context.Context) ([]models.Partition, error) {
	cat, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Partitions(), nil
}

func (e *Engine) AddDepartment(ctx context.Context, stage, department string) error {
	p := models.Partition{Stage: strings.TrimSpace(stage), Department: strings.TrimSpace(department)}
	if !p.Valid() {
		return apperr.New(apperr.CodeInvalid, "stage and department are required")
	}
	return e.do(ctx, func(ctx context.Context) error {
		cat, err := e.loadCatalog(ctx, e.st)
		if err != nil {
			return err
		}
		if cat.Has(p) {
			return apperr.New(apperr.CodeAlreadyExists, fmt.Sprintf("%s already exists", p))
		}
		cat[p.Stage] = append(cat[p.Stage], p.Department)
		return e.st.SaveCatalog(ctx, cat)
	})
}

// RemoveDepartment drops a partition from the catalog. Its roster and
// attendance data stay in storage.
func (e *Engine) RemoveDepartment(ctx context.Context, stage, department string) error {
	p := models.Partition{Stage: strings.TrimSpace(stage), Department: strings.TrimSpace(department)}
	return e.do(ctx, func(ctx context.Context) error {
		cat, err := e.loadCatalog(ctx, e.st)
		if err != nil {
			return err
		}
		if !cat.Has(p) {
			return apperr.New(apperr.CodeNotFound, fmt.Sprintf("%s not in catalog", p))
		}
		deps := cat[p.Stage][:0:0]
		for _, d := range cat[p.Stage] {
			if d != p.Department {
				deps = append(deps, d)
			}
		}
		if len(deps) == 0 {
			delete(cat, p.Stage)
		} else {
			cat[p.Stage] = deps
		}
		return e.st.SaveCatalog(ctx, cat)
	})
}
