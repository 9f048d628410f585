package model

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const UnknownSeva = "Unknown"

// RevenueRow is one donor as seen by the revenue report. SevaName is nil
// when the donor's seva no longer resolves.
type RevenueRow struct {
	SevaName      *string
	PaymentMode   PaymentMode
	PaymentStatus PaymentStatus
	PaidAmount    decimal.Decimal
}

type AmountCount struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

type RevenueReport struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalDonors  int64           `json:"total_donors"`
	BySeva       []AmountCount   `json:"by_seva"`
	ByMode       []AmountCount   `json:"by_payment_mode"`
	ByStatus     []AmountCount   `json:"by_status"`
}

// RevenueFromRows aggregates a snapshot of donors. Revenue, by-seva and
// by-mode only count fully paid donors; by-status and TotalDonors count
// every row. Groups are sorted by key.
func RevenueFromRows(rows []RevenueRow) RevenueReport {
	rep := RevenueReport{TotalRevenue: decimal.Zero}
	seva := map[string]*AmountCount{}
	mode := map[string]*AmountCount{}
	status := map[string]*AmountCount{}

	add := func(m map[string]*AmountCount, key string, amount decimal.Decimal) {
		v, ok := m[key]
		if !ok {
			v = &AmountCount{Key: key, Amount: decimal.Zero}
			m[key] = v
		}
		v.Amount = v.Amount.Add(amount)
		v.Count++
	}

	for _, r := range rows {
		rep.TotalDonors++
		add(status, string(r.PaymentStatus), r.PaidAmount)
		if r.PaymentStatus != PaymentStatusPaid {
			continue
		}
		rep.TotalRevenue = rep.TotalRevenue.Add(r.PaidAmount)
		name := UnknownSeva
		if r.SevaName != nil && *r.SevaName != "" {
			name = *r.SevaName
		}
		add(seva, name, r.PaidAmount)
		if r.PaymentMode != "" {
			add(mode, string(r.PaymentMode), r.PaidAmount)
		}
	}

	rep.BySeva = flatten(seva)
	rep.ByMode = flatten(mode)
	rep.ByStatus = flatten(status)
	return rep
}

func flatten(m map[string]*AmountCount) []AmountCount {
	out := make([]AmountCount, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type DashboardStats struct {
	TotalSevas   int64           `json:"total_sevas"`
	TotalUsers   int64           `json:"total_users"`
	TotalDonors  int64           `json:"total_donors"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// UserStats summarizes the donors one profile has added.
type UserStats struct {
	ProfileID   uuid.UUID       `json:"profile_id"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	DonorCount  int64           `json:"donor_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
}
