package analysis

import (
	"sort"

	"freightcli/pkg/contracts/domain"
)

// group is the rows sharing one key, in table order
type group struct {
	key  string
	rows []*domain.Shipment
}

func (g group) values(f func(*domain.Shipment) float64) []float64 {
	out := make([]float64, len(g.rows))
	for i, r := range g.rows {
		out[i] = f(r)
	}
	return out
}

func (g group) sumOf(f func(*domain.Shipment) float64) float64  { return sum(g.values(f)) }
func (g group) meanOf(f func(*domain.Shipment) float64) float64 { return mean(g.values(f)) }

// groupBy partitions rows by key in first-seen order. Rows with an empty
// key are left out.
func groupBy(rows []domain.Shipment, key func(*domain.Shipment) string) []group {
	index := make(map[string]int)
	var groups []group
	for i := range rows {
		r := &rows[i]
		k := key(r)
		if k == "" {
			continue
		}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, group{key: k})
		}
		groups[pos].rows = append(groups[pos].rows, r)
	}
	return groups
}

// sortedGroupBy is groupBy with keys in lexicographic order
func sortedGroupBy(rows []domain.Shipment, key func(*domain.Shipment) string) []group {
	groups := groupBy(rows, key)
	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups
}

func weightOf(s *domain.Shipment) float64        { return s.Weight }
func profitOf(s *domain.Shipment) float64        { return s.Profit }
func freightOf(s *domain.Shipment) float64       { return s.Freight }
func profitPerTonOf(s *domain.Shipment) float64  { return s.ProfitPerTon }
func freightPerTonOf(s *domain.Shipment) float64 { return s.FreightPerTon }
func marginOf(s *domain.Shipment) float64        { return s.MarginPct }

func categoryKey(s *domain.Shipment) string    { return s.Category }
func destinationKey(s *domain.Shipment) string { return s.Destination }
func vehicleKey(s *domain.Shipment) string     { return s.Vehicle }
func weekKey(s *domain.Shipment) string        { return s.WeekLabel }
func dayKey(s *domain.Shipment) string         { return s.DateLabel }
func monthKey(s *domain.Shipment) string       { return s.MonthTag }

// routeSep joins category and destination into one route key; neither
// can contain it since both come from single spreadsheet cells
const routeSep = "\x00"

func routeKey(s *domain.Shipment) string { return s.Category + routeSep + s.Destination }
