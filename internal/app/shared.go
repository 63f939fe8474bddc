package app

import "database/sql"

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Plan prices in minor currency units, used only for the audit mirror row.
// The provider's own record is authoritative; unknown plans record zero.
var planPrices = map[string]int64{
	"standard": 7500,
	"gift":     7500,
	"waiver":   0,
}

func planAmountCents(plan string) int64 {
	return planPrices[plan]
}
