package types

import "strings"

// supportedCurrencies mirrors the ISO 4217 subset the exchange-rate provider
// publishes rates for. Kept as a set for O(1) validation.
var supportedCurrencies = map[string]struct{}{}

func init() {
	for _, code := range strings.Fields(`
		AED ARS AUD BDT BGN BHD BRL CAD CHF CLP CNY COP CZK DKK EGP EUR GBP
		HKD HUF IDR ILS INR JPY KRW KWD LKR MAD MXN MYR NGN NOK NZD PEN PHP
		PKR PLN QAR RON RUB SAR SEK SGD THB TRY TWD UAH USD VND ZAR`) {
		supportedCurrencies[code] = struct{}{}
	}
}

// NormalizeCurrency uppercases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCurrency reports whether code (already normalized) is supported.
func IsValidCurrency(code string) bool {
	_, ok := supportedCurrencies[code]
	return ok
}
