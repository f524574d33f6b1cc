package synth

import "github.com/castlemilk/demobank/internal/bank"

// Profile describes one demo customer and the products they hold.
type Profile struct {
	DisplayName string
	Username    string
	Occupation  string
	City        string
	Accounts    []bank.AccountKind
	Cards       int
	Loans       []string
}

// DefaultProfiles is the demo roster shown on the admin profile switcher.
// The last profile holds no products.
var DefaultProfiles = []Profile{
	{
		DisplayName: "Alex Morgan",
		Username:    "alex.morgan",
		Occupation:  "Software Developer",
		City:        "Seattle",
		Accounts:    []bank.AccountKind{bank.AccountKindChecking, bank.AccountKindSavings},
		Cards:       1,
		Loans:       []string{LoanAuto},
	},
	{
		DisplayName: "Sam Rivera",
		Username:    "sam.rivera",
		Occupation:  "Marketing Manager",
		City:        "Austin",
		Accounts:    []bank.AccountKind{bank.AccountKindChecking, bank.AccountKindMoneyMarket, bank.AccountKindCD},
		Cards:       2,
		Loans:       []string{LoanMortgage},
	},
	{
		DisplayName: "Jordan Lee",
		Username:    "jordan.lee",
		Occupation:  "Product Designer",
		City:        "Chicago",
		Accounts:    []bank.AccountKind{bank.AccountKindChecking},
		Cards:       1,
		Loans:       []string{LoanStudent, LoanPersonal},
	},
	{
		DisplayName: "Taylor Brooks",
		Username:    "taylor.brooks",
		Occupation:  "Nurse",
		City:        "Denver",
		Accounts:    []bank.AccountKind{bank.AccountKindChecking, bank.AccountKindSavings},
	},
	{
		DisplayName: "Casey Nguyen",
		Username:    "casey.nguyen",
		Occupation:  "Graduate Student",
		City:        "Boston",
	},
}

// Loan kinds.
const (
	LoanAuto     = "auto"
	LoanMortgage = "mortgage"
	LoanStudent  = "student"
	LoanPersonal = "personal"
)

type loanTerms struct {
	term      int
	minAmount int64 // dollars
	maxAmount int64
	rateBps   int64
}

var loanCatalog = map[string]loanTerms{
	LoanAuto:     {term: 60, minAmount: 15000, maxAmount: 42000, rateBps: 689},
	LoanMortgage: {term: 360, minAmount: 220000, maxAmount: 640000, rateBps: 612},
	LoanStudent:  {term: 120, minAmount: 18000, maxAmount: 65000, rateBps: 505},
	LoanPersonal: {term: 36, minAmount: 3000, maxAmount: 15000, rateBps: 1149},
}

// Interest rates in basis points per account kind.
var accountRateBps = map[bank.AccountKind]int64{
	bank.AccountKindChecking:    1,
	bank.AccountKindSavings:     410,
	bank.AccountKindMoneyMarket: 435,
	bank.AccountKindCD:          475,
}

var accountNicknames = map[bank.AccountKind]string{
	bank.AccountKindChecking:    "everyday checking",
	bank.AccountKindSavings:     "high yield savings",
	bank.AccountKindMoneyMarket: "money market",
	bank.AccountKindCD:          "certificate of deposit",
}

type merchant struct {
	name     string // lower case; title-cased for display
	category string
	icon     string
	minCents int64
	maxCents int64
}

// merchants are the counterparties for outgoing card-present and online spend.
var merchants = []merchant{
	{"whole foods market", "groceries", "cart", 2500, 18000},
	{"trader joe's", "groceries", "cart", 1800, 9500},
	{"blue bottle coffee", "dining", "coffee", 450, 1600},
	{"chipotle", "dining", "utensils", 1100, 3200},
	{"shell", "transportation", "fuel", 3000, 7500},
	{"uber", "transportation", "car", 900, 4800},
	{"delta air lines", "travel", "plane", 18000, 65000},
	{"netflix", "entertainment", "tv", 1549, 2299},
	{"spotify", "entertainment", "music", 1099, 1699},
	{"target", "shopping", "bag", 1500, 14000},
	{"home depot", "home", "hammer", 2200, 26000},
	{"walgreens", "health", "pill", 800, 6000},
	{"city power & light", "utilities", "bolt", 6500, 21000},
	{"comcast xfinity", "utilities", "wifi", 7999, 9999},
	{"corner market", "", "store", 300, 2500},
}

var cardProducts = []struct {
	name    string
	network string
	rewards string
}{
	{"cash rewards", "visa", "cash back"},
	{"travel elite", "mastercard", "miles"},
	{"everyday", "visa", ""},
	{"platinum select", "american express", "points"},
}

var creditLimits = []int64{2500, 5000, 7500, 10000, 15000}
