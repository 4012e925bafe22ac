package menu

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created           int        `json:"created"`
	CategoriesCreated int        `json:"categoriesCreated"`
	Errors            []RowError `json:"errors"`
}

// ImportXLSX reads the first sheet, one item per row after the header:
// category | name | description | price | vegetarian | spicy.
// Unknown categories are created. Bad rows are reported and skipped.
func (s *Service) ImportXLSX(ctx context.Context, tenantID string, r io.Reader) (*ImportResult, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.NewValidation("Failed to parse Excel file")
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.NewValidation("Excel file has no sheets")
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.NewValidation("Failed to read Excel rows")
	}
	if len(rows) < 2 {
		return nil, apperr.NewValidation("Excel must have at least one row of data")
	}

	result := &ImportResult{Errors: []RowError{}}
	categories := map[string]*models.Category{}
	now := s.Clock.Now().UTC()

	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		for i, row := range rows[1:] {
			rowNum := i + 2
			cell := func(n int) string {
				if n < len(row) {
					return strings.TrimSpace(row[n])
				}
				return ""
			}
			if cell(0) == "" && cell(1) == "" {
				continue
			}

			catName, name := cell(0), cell(1)
			if catName == "" || name == "" {
				result.Errors = append(result.Errors, RowError{rowNum, "category and name are required"})
				continue
			}
			price, err := strconv.ParseFloat(cell(3), 64)
			if err != nil || price < 0 {
				result.Errors = append(result.Errors, RowError{rowNum, fmt.Sprintf("invalid price %q", cell(3))})
				continue
			}

			key := strings.ToLower(catName)
			cat, ok := categories[key]
			if !ok {
				cat, err = tx.GetCategoryByName(ctx, tenantID, catName)
				if err != nil {
					if !store.IsNotFound(err) {
						return err
					}
					cat = &models.Category{
						ID:        uuid.NewString(),
						TenantID:  tenantID,
						Name:      catName,
						IsActive:  true,
						SortOrder: len(categories),
						CreatedAt: now,
						UpdatedAt: now,
					}
					if err := tx.CreateCategory(ctx, cat); err != nil {
						return err
					}
					result.CategoriesCreated++
				}
				categories[key] = cat
			}

			item := &models.MenuItem{
				ID:              uuid.NewString(),
				TenantID:        tenantID,
				CategoryID:      cat.ID,
				Name:            name,
				Description:     cell(2),
				Price:           utils.RoundMoney(price),
				IsAvailable:     true,
				IsVegetarian:    truthy(cell(4)),
				IsSpicy:         truthy(cell(5)),
				PrepTimeMinutes: DefaultPrepMinutes,
				SortOrder:       rowNum,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.CreateMenuItem(ctx, item); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import menu: %w", err)
	}

	s.invalidateTenant(ctx, tenantID)
	s.Logger.Info("MENU", fmt.Sprintf("Imported %d items (%d rows rejected) for tenant %s", result.Created, len(result.Errors), tenantID))
	return result, nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "y", "yes", "true", "x":
		return true
	}
	return false
}
