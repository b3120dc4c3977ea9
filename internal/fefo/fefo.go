// Package fefo распределяет запрошенное количество по партиям в порядке First-Expiry-First-Out.
package fefo

import (
	"github.com/EviternDev/pharma-erp/internal/model"
)

// Allocate выбирает, сколько списать с каждой партии.
//
// Партии должны приходить уже отфильтрованными (не просрочены, остаток > 0) и отсортированными
// по сроку годности по возрастанию: функция не пересортировывает их, поэтому партии с одинаковым
// сроком расходуются в порядке входного списка. Партии с нулевым остатком пропускаются.
//
// Если суммарного остатка не хватает, возвращается *model.InsufficientStockError и никакого
// частичного результата.
func Allocate(batches []model.Batch, requested int) (model.Allocation, error) {
	if requested <= 0 {
		return nil, model.InvalidArgumentf("requested quantity must be positive, got %d", requested)
	}

	available := 0
	seen := make(map[int64]struct{}, len(batches))
	for _, b := range batches {
		if b.Quantity < 0 {
			return nil, model.InvalidArgumentf("batch %d has negative quantity %d", b.ID, b.Quantity)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, model.InvalidArgumentf("batch %d listed more than once", b.ID)
		}
		seen[b.ID] = struct{}{}
		available += b.Quantity
	}

	if available < requested {
		return nil, &model.InsufficientStockError{
			MedicineID: medicineOf(batches),
			Requested:  requested,
			Available:  available,
		}
	}

	remaining := requested
	allocation := make(model.Allocation, 0, 2)
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Quantity == 0 {
			continue
		}
		take := min(b.Quantity, remaining)
		allocation = append(allocation, model.Draw{BatchID: b.ID, Quantity: take})
		remaining -= take
	}

	return allocation, nil
}

func medicineOf(batches []model.Batch) int64 {
	if len(batches) == 0 {
		return 0
	}
	return batches[0].MedicineID
}
