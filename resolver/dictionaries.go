package resolver

// Static dictionaries. Keys are the uppercase trimmed forms Resolve matches
// against. Small by design: the dictionaries cover the entities the practice
// engine's live-data cards actually surface, not the whole market.

type tickerInfo struct {
	symbol   string
	name     string
	exchange string
	country  string
}

var tickers = map[string]tickerInfo{
	"AAPL":      {symbol: "AAPL", name: "Apple Inc.", exchange: "NASDAQ", country: "US"},
	"APPLE":     {symbol: "AAPL", name: "Apple Inc.", exchange: "NASDAQ", country: "US"},
	"MSFT":      {symbol: "MSFT", name: "Microsoft Corporation", exchange: "NASDAQ", country: "US"},
	"MICROSOFT": {symbol: "MSFT", name: "Microsoft Corporation", exchange: "NASDAQ", country: "US"},
	"GOOGL":     {symbol: "GOOGL", name: "Alphabet Inc.", exchange: "NASDAQ", country: "US"},
	"GOOGLE":    {symbol: "GOOGL", name: "Alphabet Inc.", exchange: "NASDAQ", country: "US"},
	"AMZN":      {symbol: "AMZN", name: "Amazon.com Inc.", exchange: "NASDAQ", country: "US"},
	"AMAZON":    {symbol: "AMZN", name: "Amazon.com Inc.", exchange: "NASDAQ", country: "US"},
	"TSLA":      {symbol: "TSLA", name: "Tesla Inc.", exchange: "NASDAQ", country: "US"},
	"TESLA":     {symbol: "TSLA", name: "Tesla Inc.", exchange: "NASDAQ", country: "US"},
	"NVDA":      {symbol: "NVDA", name: "NVIDIA Corporation", exchange: "NASDAQ", country: "US"},
	"NVIDIA":    {symbol: "NVDA", name: "NVIDIA Corporation", exchange: "NASDAQ", country: "US"},
	"META":      {symbol: "META", name: "Meta Platforms Inc.", exchange: "NASDAQ", country: "US"},
	"JPM":       {symbol: "JPM", name: "JPMorgan Chase & Co.", exchange: "NYSE", country: "US"},
	"V":         {symbol: "V", name: "Visa Inc.", exchange: "NYSE", country: "US"},
	"TSM":       {symbol: "TSM", name: "Taiwan Semiconductor", exchange: "NYSE", country: "TW"},
}

type cryptoInfo struct {
	symbol string
	name   string
}

var cryptos = map[string]cryptoInfo{
	"BTC":      {symbol: "BTC", name: "Bitcoin"},
	"BITCOIN":  {symbol: "BTC", name: "Bitcoin"},
	"ETH":      {symbol: "ETH", name: "Ethereum"},
	"ETHEREUM": {symbol: "ETH", name: "Ethereum"},
	"SOL":      {symbol: "SOL", name: "Solana"},
	"SOLANA":   {symbol: "SOL", name: "Solana"},
	"XRP":      {symbol: "XRP", name: "XRP"},
	"ADA":      {symbol: "ADA", name: "Cardano"},
	"CARDANO":  {symbol: "ADA", name: "Cardano"},
	"DOGE":     {symbol: "DOGE", name: "Dogecoin"},
	"DOGECOIN": {symbol: "DOGE", name: "Dogecoin"},
}

type currencyInfo struct {
	code string
	name string
}

var currencies = map[string]currencyInfo{
	"USD": {code: "USD", name: "US Dollar"},
	"EUR": {code: "EUR", name: "Euro"},
	"GBP": {code: "GBP", name: "British Pound"},
	"JPY": {code: "JPY", name: "Japanese Yen"},
	"CHF": {code: "CHF", name: "Swiss Franc"},
	"CAD": {code: "CAD", name: "Canadian Dollar"},
	"AUD": {code: "AUD", name: "Australian Dollar"},
	"CNY": {code: "CNY", name: "Chinese Yuan"},
	"INR": {code: "INR", name: "Indian Rupee"},
	"BRL": {code: "BRL", name: "Brazilian Real"},
	"MXN": {code: "MXN", name: "Mexican Peso"},
	"KRW": {code: "KRW", name: "South Korean Won"},
}

// currencyNames maps spoken currency names ("euro to dollar") to ISO codes.
var currencyNames = map[string]string{
	"DOLLAR":    "USD",
	"DOLLARS":   "USD",
	"BUCK":      "USD",
	"EURO":      "EUR",
	"EUROS":     "EUR",
	"POUND":     "GBP",
	"POUNDS":    "GBP",
	"STERLING":  "GBP",
	"YEN":       "JPY",
	"FRANC":     "CHF",
	"FRANCS":    "CHF",
	"YUAN":      "CNY",
	"RENMINBI":  "CNY",
	"RUPEE":     "INR",
	"RUPEES":    "INR",
	"REAL":      "BRL",
	"REAIS":     "BRL",
	"PESO":      "MXN",
	"PESOS":     "MXN",
	"WON":       "KRW",
	"LOONIE":    "CAD",
	"AUSSIE":    "AUD",
	"GREENBACK": "USD",
}

type locationInfo struct {
	id       string
	name     string
	country  string
	timezone string
}

var locations = map[string]locationInfo{
	"NEW YORK":      {id: "new-york", name: "New York", country: "US", timezone: "America/New_York"},
	"NYC":           {id: "new-york", name: "New York", country: "US", timezone: "America/New_York"},
	"LONDON":        {id: "london", name: "London", country: "GB", timezone: "Europe/London"},
	"PARIS":         {id: "paris", name: "Paris", country: "FR", timezone: "Europe/Paris"},
	"BERLIN":        {id: "berlin", name: "Berlin", country: "DE", timezone: "Europe/Berlin"},
	"TOKYO":         {id: "tokyo", name: "Tokyo", country: "JP", timezone: "Asia/Tokyo"},
	"SYDNEY":        {id: "sydney", name: "Sydney", country: "AU", timezone: "Australia/Sydney"},
	"SINGAPORE":     {id: "singapore", name: "Singapore", country: "SG", timezone: "Asia/Singapore"},
	"HONG KONG":     {id: "hong-kong", name: "Hong Kong", country: "HK", timezone: "Asia/Hong_Kong"},
	"SAN FRANCISCO": {id: "san-francisco", name: "San Francisco", country: "US", timezone: "America/Los_Angeles"},
	"SF":            {id: "san-francisco", name: "San Francisco", country: "US", timezone: "America/Los_Angeles"},
	"CHICAGO":       {id: "chicago", name: "Chicago", country: "US", timezone: "America/Chicago"},
	"DUBAI":         {id: "dubai", name: "Dubai", country: "AE", timezone: "Asia/Dubai"},
	"MUMBAI":        {id: "mumbai", name: "Mumbai", country: "IN", timezone: "Asia/Kolkata"},
	"SAO PAULO":     {id: "sao-paulo", name: "São Paulo", country: "BR", timezone: "America/Sao_Paulo"},
}

// timezoneAliases maps common abbreviations and city shorthands onto IANA
// zone ids. Full IANA ids pass through the syntactic pattern match instead.
var timezoneAliases = map[string]string{
	"EST":     "America/New_York",
	"EDT":     "America/New_York",
	"EASTERN": "America/New_York",
	"CST":     "America/Chicago",
	"CDT":     "America/Chicago",
	"CENTRAL": "America/Chicago",
	"MST":     "America/Denver",
	"MDT":     "America/Denver",
	"PST":     "America/Los_Angeles",
	"PDT":     "America/Los_Angeles",
	"PACIFIC": "America/Los_Angeles",
	"GMT":     "Etc/GMT",
	"UTC":     "Etc/UTC",
	"BST":     "Europe/London",
	"CET":     "Europe/Paris",
	"CEST":    "Europe/Paris",
	"JST":     "Asia/Tokyo",
	"IST":     "Asia/Kolkata",
	"AEST":    "Australia/Sydney",
}

type indexInfo struct {
	symbol  string
	name    string
	country string
}

var indices = map[string]indexInfo{
	"SPX":       {symbol: "SPX", name: "S&P 500", country: "US"},
	"S&P 500":   {symbol: "SPX", name: "S&P 500", country: "US"},
	"S&P500":    {symbol: "SPX", name: "S&P 500", country: "US"},
	"SP500":     {symbol: "SPX", name: "S&P 500", country: "US"},
	"DJI":       {symbol: "DJI", name: "Dow Jones Industrial Average", country: "US"},
	"DOW":       {symbol: "DJI", name: "Dow Jones Industrial Average", country: "US"},
	"DOW JONES": {symbol: "DJI", name: "Dow Jones Industrial Average", country: "US"},
	"IXIC":      {symbol: "IXIC", name: "NASDAQ Composite", country: "US"},
	"NASDAQ":    {symbol: "IXIC", name: "NASDAQ Composite", country: "US"},
	"FTSE":      {symbol: "FTSE", name: "FTSE 100", country: "GB"},
	"FTSE 100":  {symbol: "FTSE", name: "FTSE 100", country: "GB"},
	"DAX":       {symbol: "DAX", name: "DAX 40", country: "DE"},
	"N225":      {symbol: "N225", name: "Nikkei 225", country: "JP"},
	"NIKKEI":    {symbol: "N225", name: "Nikkei 225", country: "JP"},
}

type commodityInfo struct {
	symbol string
	name   string
}

var commodities = map[string]commodityInfo{
	"GOLD":        {symbol: "XAU", name: "Gold"},
	"XAU":         {symbol: "XAU", name: "Gold"},
	"SILVER":      {symbol: "XAG", name: "Silver"},
	"XAG":         {symbol: "XAG", name: "Silver"},
	"OIL":         {symbol: "WTI", name: "Crude Oil (WTI)"},
	"CRUDE":       {symbol: "WTI", name: "Crude Oil (WTI)"},
	"CRUDE OIL":   {symbol: "WTI", name: "Crude Oil (WTI)"},
	"WTI":         {symbol: "WTI", name: "Crude Oil (WTI)"},
	"BRENT":       {symbol: "BRENT", name: "Brent Crude"},
	"NATURAL GAS": {symbol: "NG", name: "Natural Gas"},
	"COPPER":      {symbol: "HG", name: "Copper"},
	"WHEAT":       {symbol: "ZW", name: "Wheat"},
}
