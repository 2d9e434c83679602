package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats backs the landing page numbers.
type DashboardStats struct {
	TotalClients  int             `json:"totalClients"`
	TotalProducts int             `json:"totalProducts"`
	PendingOrders int             `json:"pendingOrders"`
	SalesTotal    decimal.Decimal `json:"salesTotal"`
	MonthlySales  decimal.Decimal `json:"monthlySales"`
	LowStockCount int             `json:"lowStockCount"`
	RecentOrders  []OrderSummary  `json:"recentOrders"`
}

// ReportFilters bounds a report to [From, To). Zero values mean unbounded.
type ReportFilters struct {
	From  time.Time
	To    time.Time
	Limit int
}

// SaleRow is a completed order as needed by the sales aggregation.
type SaleRow struct {
	OrderID    int64           `db:"id"`
	Date       time.Time       `db:"date"`
	Total      decimal.Decimal `db:"total"`
	PaidAmount decimal.Decimal `db:"paid_amount"`
}

type SalesDay struct {
	Day       string          `json:"day"`
	Orders    int             `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
	Collected decimal.Decimal `json:"collected"`
}

type SalesReport struct {
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	Days        []SalesDay      `json:"days"`
	Orders      int             `json:"orders"`
	Revenue     decimal.Decimal `json:"revenue"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type TopProduct struct {
	ProductID   int64           `db:"product_id" json:"productId"`
	ProductName string          `db:"product_name" json:"productName"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Revenue     decimal.Decimal `db:"revenue" json:"revenue"`
}

// ValuationGroup is the stock value of one product category.
type ValuationGroup struct {
	Category   string          `json:"category"`
	Products   []Product       `json:"products"`
	Units      int             `json:"units"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type ValuationReport struct {
	Groups     []ValuationGroup `json:"groups"`
	Units      int              `json:"units"`
	TotalValue decimal.Decimal  `json:"totalValue"`
}

// ClientReceivables lists the open balances of one client.
type ClientReceivables struct {
	ClientID   *int64          `json:"clientId"`
	ClientName string          `json:"clientName"`
	Orders     []OrderSummary  `json:"orders"`
	Balance    decimal.Decimal `json:"balance"`
}
