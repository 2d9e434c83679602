package report

import (
	"sort"
	"time"

	"termomaz/database"
	"termomaz/mappers"
	"termomaz/model"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// Dashboard gathers the landing page numbers. Sales count completed orders only.
func Dashboard(db database.DBTX, lowStockThreshold, recent int) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	var err error

	if stats.TotalClients, err = database.CountClients(db); err != nil {
		return nil, err
	}
	if stats.TotalProducts, err = database.CountProducts(db); err != nil {
		return nil, err
	}
	if stats.PendingOrders, err = database.CountOrdersByStatus(db, model.StatusPending); err != nil {
		return nil, err
	}

	all, err := database.GetCompletedSales(db, model.ReportFilters{})
	if err != nil {
		return nil, err
	}
	stats.SalesTotal = sumTotals(all)

	monthStart := StartOfMonth(model.Now())
	month, err := database.GetCompletedSales(db, model.ReportFilters{From: monthStart, To: monthStart.AddDate(0, 1, 0)})
	if err != nil {
		return nil, err
	}
	stats.MonthlySales = sumTotals(month)

	low, err := database.GetLowStockProducts(db, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	stats.LowStockCount = len(low)

	if stats.RecentOrders, err = database.GetOrders(db, model.OrderFilters{Limit: recent}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Sales aggregates completed orders per UTC day within f.
func Sales(db database.DBTX, f model.ReportFilters) (*model.SalesReport, error) {
	rows, err := database.GetCompletedSales(db, f)
	if err != nil {
		return nil, err
	}

	rep := &model.SalesReport{
		Days:        []model.SalesDay{},
		Revenue:     decimal.Zero,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	if !f.From.IsZero() {
		rep.From = f.From.UTC().Format(dayLayout)
	}
	if !f.To.IsZero() {
		// To is exclusive; report the last day included.
		rep.To = f.To.UTC().AddDate(0, 0, -1).Format(dayLayout)
	}

	index := make(map[string]int)
	for _, row := range rows {
		day := row.Date.UTC().Format(dayLayout)
		i, ok := index[day]
		if !ok {
			rep.Days = append(rep.Days, model.SalesDay{Day: day, Revenue: decimal.Zero, Collected: decimal.Zero})
			i = len(rep.Days) - 1
			index[day] = i
		}
		d := &rep.Days[i]
		d.Orders++
		d.Revenue = d.Revenue.Add(row.Total)
		d.Collected = d.Collected.Add(row.PaidAmount)

		rep.Orders++
		rep.Revenue = rep.Revenue.Add(row.Total)
		rep.Collected = rep.Collected.Add(row.PaidAmount)
	}
	sort.Slice(rep.Days, func(i, j int) bool { return rep.Days[i].Day < rep.Days[j].Day })

	rep.Outstanding = rep.Revenue.Sub(rep.Collected)
	if rep.Outstanding.IsNegative() {
		rep.Outstanding = decimal.Zero
	}
	return rep, nil
}

func TopProducts(db database.DBTX, f model.ReportFilters) ([]model.TopProduct, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	return database.GetTopProducts(db, f)
}

// Valuation values current stock at current prices, grouped by category.
func Valuation(db database.DBTX, category string) (*model.ValuationReport, error) {
	products, err := database.GetAllProducts(db, model.ProductFilters{Category: category})
	if err != nil {
		return nil, err
	}

	rep := &model.ValuationReport{Groups: []model.ValuationGroup{}, TotalValue: decimal.Zero}
	index := make(map[string]int)
	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			rep.Groups = append(rep.Groups, model.ValuationGroup{Category: p.Category, TotalValue: decimal.Zero})
			i = len(rep.Groups) - 1
			index[p.Category] = i
		}
		value := p.Price.Mul(decimal.NewFromInt(int64(p.Stock)))
		g := &rep.Groups[i]
		g.Products = append(g.Products, p)
		g.Units += p.Stock
		g.TotalValue = g.TotalValue.Add(value)

		rep.Units += p.Stock
		rep.TotalValue = rep.TotalValue.Add(value)
	}
	sort.SliceStable(rep.Groups, func(i, j int) bool { return rep.Groups[i].Category < rep.Groups[j].Category })
	return rep, nil
}

// Receivables groups open balances by client, largest debt first. Walk-in sales form their own group.
func Receivables(db database.DBTX) ([]model.ClientReceivables, error) {
	orders, err := database.GetReceivableOrders(db)
	if err != nil {
		return nil, err
	}

	out := []model.ClientReceivables{}
	index := make(map[int64]int)
	const walkIn = int64(0)
	for _, o := range orders {
		key := walkIn
		if o.ClientID != nil {
			key = *o.ClientID
		}
		i, ok := index[key]
		if !ok {
			out = append(out, model.ClientReceivables{
				ClientID:   o.ClientID,
				ClientName: mappers.ClientLabel(o.ClientName),
				Balance:    decimal.Zero,
			})
			i = len(out) - 1
			index[key] = i
		}
		out[i].Orders = append(out[i].Orders, o)
		out[i].Balance = out[i].Balance.Add(o.Balance())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Balance.GreaterThan(out[j].Balance) })
	return out, nil
}

func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sumTotals(rows []model.SaleRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Total)
	}
	return total
}
