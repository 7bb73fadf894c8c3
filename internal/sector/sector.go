// Package sector maps NSE instrument symbols to their sector names for
// alert enrichment. The mapping is static; symbols not present map to
// "Others".
package sector

// DefaultSector is returned for symbols without a mapping.
const DefaultSector = "Others"

var bySymbol = map[string]string{
	// Information Technology
	"NSE:TCS-EQ":        "Information Technology",
	"NSE:INFY-EQ":       "Information Technology",
	"NSE:WIPRO-EQ":      "Information Technology",
	"NSE:HCLTECH-EQ":    "Information Technology",
	"NSE:TECHM-EQ":      "Information Technology",
	"NSE:LTIM-EQ":       "Information Technology",
	"NSE:COFORGE-EQ":    "Information Technology",
	"NSE:PERSISTENT-EQ": "Information Technology",
	"NSE:MPHASIS-EQ":    "Information Technology",
	"NSE:TATAELXSI-EQ":  "Information Technology",
	"NSE:KPITTECH-EQ":   "Information Technology",
	"NSE:OFSS-EQ":       "Information Technology",

	// Banking
	"NSE:HDFCBANK-EQ":   "Banking",
	"NSE:ICICIBANK-EQ":  "Banking",
	"NSE:AXISBANK-EQ":   "Banking",
	"NSE:SBIN-EQ":       "Banking",
	"NSE:KOTAKBANK-EQ":  "Banking",
	"NSE:INDUSINDBK-EQ": "Banking",
	"NSE:IDFCFIRSTB-EQ": "Banking",
	"NSE:FEDERALBNK-EQ": "Banking",
	"NSE:BANKBARODA-EQ": "Banking",
	"NSE:PNB-EQ":        "Banking",
	"NSE:CANBK-EQ":      "Banking",
	"NSE:AUBANK-EQ":     "Banking",

	// Financial Services
	"NSE:BAJFINANCE-EQ": "Financial Services",
	"NSE:BAJAJFINSV-EQ": "Financial Services",
	"NSE:HDFCLIFE-EQ":   "Financial Services",
	"NSE:SBILIFE-EQ":    "Financial Services",
	"NSE:LICI-EQ":       "Financial Services",
	"NSE:HDFCAMC-EQ":    "Financial Services",
	"NSE:CHOLAFIN-EQ":   "Financial Services",
	"NSE:MUTHOOTFIN-EQ": "Financial Services",
	"NSE:SHRIRAMFIN-EQ": "Financial Services",
	"NSE:PFC-EQ":        "Financial Services",
	"NSE:RECLTD-EQ":     "Financial Services",
	"NSE:JIOFIN-EQ":     "Financial Services",
	"NSE:CDSL-EQ":       "Financial Services",
	"NSE:BSE-EQ":        "Financial Services",
	"NSE:MCX-EQ":        "Financial Services",
	"NSE:ANGELONE-EQ":   "Financial Services",

	// Oil & Gas
	"NSE:RELIANCE-EQ":  "Oil & Gas",
	"NSE:ONGC-EQ":      "Oil & Gas",
	"NSE:IOC-EQ":       "Oil & Gas",
	"NSE:BPCL-EQ":      "Oil & Gas",
	"NSE:HINDPETRO-EQ": "Oil & Gas",
	"NSE:GAIL-EQ":      "Oil & Gas",
	"NSE:IGL-EQ":       "Oil & Gas",
	"NSE:ATGL-EQ":      "Oil & Gas",

	// Power
	"NSE:NTPC-EQ":       "Power",
	"NSE:POWERGRID-EQ":  "Power",
	"NSE:COALINDIA-EQ":  "Power",
	"NSE:TATAPOWER-EQ":  "Power",
	"NSE:ADANIPOWER-EQ": "Power",
	"NSE:ADANIGREEN-EQ": "Power",
	"NSE:NHPC-EQ":       "Power",
	"NSE:SJVN-EQ":       "Power",
	"NSE:IREDA-EQ":      "Power",
	"NSE:SUZLON-EQ":     "Power",
	"NSE:TORNTPOWER-EQ": "Power",

	// Automobiles
	"NSE:MARUTI-EQ":     "Automobiles",
	"NSE:TATAMOTORS-EQ": "Automobiles",
	"NSE:M&M-EQ":        "Automobiles",
	"NSE:EICHERMOT-EQ":  "Automobiles",
	"NSE:BAJAJ-AUTO-EQ": "Automobiles",
	"NSE:HEROMOTOCO-EQ": "Automobiles",
	"NSE:TVSMOTOR-EQ":   "Automobiles",
	"NSE:ASHOKLEY-EQ":   "Automobiles",
	"NSE:MOTHERSON-EQ":  "Automobiles",
	"NSE:BOSCHLTD-EQ":   "Automobiles",
	"NSE:MRF-EQ":        "Automobiles",

	// Metals & Mining
	"NSE:TATASTEEL-EQ":  "Metals & Mining",
	"NSE:HINDALCO-EQ":   "Metals & Mining",
	"NSE:JSWSTEEL-EQ":   "Metals & Mining",
	"NSE:SAIL-EQ":       "Metals & Mining",
	"NSE:VEDL-EQ":       "Metals & Mining",
	"NSE:HINDZINC-EQ":   "Metals & Mining",
	"NSE:JINDALSTEL-EQ": "Metals & Mining",
	"NSE:NMDC-EQ":       "Metals & Mining",
	"NSE:NATIONALUM-EQ": "Metals & Mining",

	// Pharmaceuticals
	"NSE:SUNPHARMA-EQ":  "Pharmaceuticals",
	"NSE:DRREDDY-EQ":    "Pharmaceuticals",
	"NSE:CIPLA-EQ":      "Pharmaceuticals",
	"NSE:DIVISLAB-EQ":   "Pharmaceuticals",
	"NSE:LUPIN-EQ":      "Pharmaceuticals",
	"NSE:BIOCON-EQ":     "Pharmaceuticals",
	"NSE:AUROPHARMA-EQ": "Pharmaceuticals",
	"NSE:TORNTPHARM-EQ": "Pharmaceuticals",
	"NSE:APOLLOHOSP-EQ": "Pharmaceuticals",
	"NSE:MANKIND-EQ":    "Pharmaceuticals",

	// FMCG
	"NSE:HINDUNILVR-EQ": "FMCG",
	"NSE:ITC-EQ":        "FMCG",
	"NSE:BRITANNIA-EQ":  "FMCG",
	"NSE:NESTLEIND-EQ":  "FMCG",
	"NSE:DABUR-EQ":      "FMCG",
	"NSE:GODREJCP-EQ":   "FMCG",
	"NSE:MARICO-EQ":     "FMCG",
	"NSE:TATACONSUM-EQ": "FMCG",
	"NSE:TITAN-EQ":      "FMCG",
	"NSE:TRENT-EQ":      "FMCG",

	// Cement
	"NSE:ULTRACEMCO-EQ": "Cement",
	"NSE:AMBUJACEM-EQ":  "Cement",
	"NSE:ACC-EQ":        "Cement",
	"NSE:SHREECEM-EQ":   "Cement",
	"NSE:JKCEMENT-EQ":   "Cement",

	// Construction & Infrastructure
	"NSE:LT-EQ":     "Construction",
	"NSE:RVNL-EQ":   "Construction",
	"NSE:IRCON-EQ":  "Construction",
	"NSE:NBCC-EQ":   "Construction",
	"NSE:BEL-EQ":    "Construction",
	"NSE:HAL-EQ":    "Construction",
	"NSE:BHEL-EQ":   "Construction",
	"NSE:CONCOR-EQ": "Construction",

	// Real Estate
	"NSE:DLF-EQ":        "Real Estate",
	"NSE:GODREJPROP-EQ": "Real Estate",
	"NSE:OBEROIRLTY-EQ": "Real Estate",
	"NSE:LODHA-EQ":      "Real Estate",

	// Telecommunications
	"NSE:BHARTIARTL-EQ": "Telecommunications",
	"NSE:IDEA-EQ":       "Telecommunications",
	"NSE:TATACOMM-EQ":   "Telecommunications",
	"NSE:HFCL-EQ":       "Telecommunications",
	"NSE:INDIGO-EQ":     "Travel & Transport",
	"NSE:ZEEL-EQ":       "Media",
	"NSE:SUNTV-EQ":      "Media",
	"NSE:PVRINOX-EQ":    "Media",
	"NSE:UPL-EQ":        "Agriculture",
	"NSE:COROMANDEL-EQ": "Agriculture",
	"NSE:CHAMBLFERT-EQ": "Agriculture",
	"NSE:ARVIND-EQ":     "Textiles",
	"NSE:RAYMOND-EQ":    "Textiles",
	"NSE:TRIDENT-EQ":    "Textiles",
}

// Lookup returns the sector for a symbol, or DefaultSector when unmapped.
func Lookup(symbol string) string {
	if s, ok := bySymbol[symbol]; ok {
		return s
	}
	return DefaultSector
}

// Symbols returns every mapped symbol. Useful as a default subscription
// list when none is configured.
func Symbols() []string {
	out := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		out = append(out, sym)
	}
	return out
}
