package dataprocessing

import (
	"freightcli/pkg/contracts/domain"
)

// ToRaw writes a cleaned table back into source layout: identity columns,
// resolved numeric columns, the month tag when present, then extras in
// their original order. Derived metrics are not included, so the result
// can be fed to Clean again.
func ToRaw(t *domain.Table) *domain.RawTable {
	n := t.SourceNames
	headers := []string{n.Date, n.Vehicle, n.Category, n.Destination, t.Columns.Weight}
	if t.Columns.Price != nil {
		headers = append(headers, *t.Columns.Price)
	}
	if t.Columns.Deduction != nil {
		headers = append(headers, *t.Columns.Deduction)
	}
	if t.Columns.HasFreight {
		headers = append(headers, n.Freight)
	}
	if t.Columns.HasProfit {
		headers = append(headers, n.Profit)
	}
	if t.Columns.HasMonthTags {
		headers = append(headers, n.MonthTag)
	}
	headers = append(headers, t.ExtraOrder...)

	out := &domain.RawTable{Headers: headers, Rows: make([][]domain.Cell, 0, len(t.Rows))}
	for _, s := range t.Rows {
		row := []domain.Cell{
			domain.TimeCell(s.Date),
			domain.TextCell(s.Vehicle),
			domain.TextCell(s.Category),
			domain.TextCell(s.Destination),
			domain.NumberCell(s.Weight),
		}
		if t.Columns.Price != nil {
			row = append(row, optionalNumber(s.SellPrice))
		}
		if t.Columns.Deduction != nil {
			row = append(row, optionalNumber(s.Deduction))
		}
		if t.Columns.HasFreight {
			row = append(row, domain.NumberCell(s.Freight))
		}
		if t.Columns.HasProfit {
			row = append(row, domain.NumberCell(s.Profit))
		}
		if t.Columns.HasMonthTags {
			row = append(row, domain.TextCell(s.MonthTag))
		}
		for _, h := range t.ExtraOrder {
			row = append(row, domain.TextCell(s.Extras[h]))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func optionalNumber(v *float64) domain.Cell {
	if v == nil {
		return domain.EmptyCell()
	}
	return domain.NumberCell(*v)
}
