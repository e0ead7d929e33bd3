package models

// VoucherSummary is the meal voucher computation for one user and month.
type VoucherSummary struct {
	UserID     string `json:"user_id"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	WorkedDays int    `json:"worked_days"`
	Amount     int    `json:"amount"`
	Currency   string `json:"currency"`
}
