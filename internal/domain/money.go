package domain

// TotalAmountLocal converts a dual-currency trip amount into the local
// currency. The foreign amount contributes only when the payment was made in
// the foreign currency, and only with a positive amount and rate.
func TotalAmountLocal(amountLocal, amountForeign, exchangeRate float64, paymentInForeign bool) float64 {
	total := amountLocal
	if paymentInForeign && amountForeign > 0 && exchangeRate > 0 {
		total += amountForeign * exchangeRate
	}
	return total
}
