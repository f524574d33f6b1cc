// Package synth builds deterministic fake banking datasets for the demo app.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/castlemilk/demobank/internal/bank"
)

// DefaultHistoryDays is how far back transactions are generated.
const DefaultHistoryDays = 45

// Options controls a synthesis run. Equal Seed, Now and Profiles produce the
// same dataset.
type Options struct {
	// Seed drives every random choice. Zero draws a fresh random seed.
	Seed int64
	// Now anchors generated dates. Zero means time.Now().
	Now time.Time
	// Profiles defaults to DefaultProfiles.
	Profiles []Profile
	// HistoryDays defaults to DefaultHistoryDays.
	HistoryDays int
}

// SynthesisError reports a failure inside dataset generation. It always
// indicates a bug rather than a recoverable condition.
type SynthesisError struct {
	Seed  int64
	Cause error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize dataset (seed %d): %v", e.Seed, e.Cause)
}

func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// Generator produces datasets with fixed options.
type Generator struct {
	opts Options
}

// NewGenerator returns a Generator for opts.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate runs one synthesis with the generator's options. A zero seed is
// replaced by a fresh random seed on every call.
func (g *Generator) Generate() (*bank.Dataset, error) {
	return Generate(g.opts)
}

// Generate synthesizes a complete, validated dataset.
func Generate(opts Options) (ds *bank.Dataset, err error) {
	if opts.Seed == 0 {
		seed, seedErr := NewSeed()
		if seedErr != nil {
			return nil, &SynthesisError{Cause: seedErr}
		}
		opts.Seed = seed
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Profiles == nil {
		opts.Profiles = DefaultProfiles
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}

	defer func() {
		if r := recover(); r != nil {
			ds = nil
			err = &SynthesisError{Seed: opts.Seed, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	b := newBuilder(opts)
	for _, p := range opts.Profiles {
		b.addProfile(p)
	}
	b.derive()

	if err := bank.Validate(b.ds); err != nil {
		return nil, &SynthesisError{Seed: opts.Seed, Cause: err}
	}
	return b.ds, nil
}

type builder struct {
	opts  Options
	rng   *rand.Rand
	now   time.Time
	title cases.Caser
	ds    *bank.Dataset
}

func newBuilder(opts Options) *builder {
	return &builder{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		now:   opts.Now,
		title: cases.Title(language.AmericanEnglish),
		ds:    bank.NewDataset(opts.Seed, opts.Now),
	}
}

// idNamespace scopes the name-based IDs of users and their products.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("demobank.example"))

// stableID names an entity by its place in the profile roster. Users and
// products keep their IDs across seeds, so a persisted selection still
// resolves after a refresh.
func stableID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "/"))).String()
}

// id draws a UUID from the seeded source so IDs are reproducible.
func (b *builder) id() string {
	id, err := uuid.NewRandomFromReader(b.rng)
	if err != nil {
		panic(fmt.Sprintf("draw uuid: %v", err))
	}
	return id.String()
}

func (b *builder) cents(min, max int64) decimal.Decimal {
	if max <= min {
		return decimal.New(min, -2)
	}
	return decimal.New(min+b.rng.Int63n(max-min+1), -2)
}

func (b *builder) digits(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('0' + b.rng.Intn(10)))
	}
	return sb.String()
}

func (b *builder) daysAgo(days int) time.Time {
	return dateOnly(b.now).AddDate(0, 0, -days)
}

func (b *builder) addProfile(p Profile) {
	user := bank.User{
		ID:          stableID("user", p.Username),
		DisplayName: p.DisplayName,
		Username:    p.Username,
		Email:       p.Username + "@demobank.example",
		Phone:       fmt.Sprintf("(555) 01%s-%s", b.digits(1), b.digits(4)),
		DateOfBirth: time.Date(1960+b.rng.Intn(40), time.Month(1+b.rng.Intn(12)), 1+b.rng.Intn(28), 0, 0, 0, 0, time.UTC),
		Occupation:  p.Occupation,
		City:        p.City,
		MemberSince: b.daysAgo(180 + b.rng.Intn(3000)),
		LastLogin:   b.now.Add(-time.Duration(1+b.rng.Intn(72)) * time.Hour).Truncate(time.Second),
	}
	b.ds.Users = append(b.ds.Users, user)
	b.ds.Transactions[user.ID] = map[string][]bank.Transaction{}

	for i, kind := range p.Accounts {
		account := b.newAccount(user, kind, i)
		txs := b.accountTransactions(user, account, kind)
		settleBalances(&account, txs)
		b.ds.Accounts = append(b.ds.Accounts, account)
		b.ds.Transactions[user.ID][account.ID] = txs
	}
	for i := 0; i < p.Cards; i++ {
		b.ds.Cards = append(b.ds.Cards, b.newCard(user, i))
	}
	for i, kind := range p.Loans {
		b.ds.Loans = append(b.ds.Loans, b.newLoan(user, kind, i))
	}
}

func (b *builder) newAccount(user bank.User, kind bank.AccountKind, n int) bank.Account {
	opened := b.daysAgo(60 + b.rng.Intn(1500))
	account := bank.Account{
		ID:           stableID("account", user.Username, string(kind), strconv.Itoa(n)),
		UserID:       user.ID,
		Kind:         kind,
		Nickname:     b.title.String(accountNicknames[kind]),
		Number:       "****" + b.digits(4),
		InterestRate: decimal.New(accountRateBps[kind], -4),
		OpenedAt:     opened,
	}
	if kind == bank.AccountKindCD {
		maturity := opened.AddDate(0, 12, 0)
		for !maturity.After(b.now) {
			maturity = maturity.AddDate(0, 12, 0)
		}
		account.MaturityDate = &maturity
	}

	switch kind {
	case bank.AccountKindChecking:
		account.Balance = b.cents(250000, 900000)
	case bank.AccountKindCD:
		account.Balance = decimal.New(int64(5+b.rng.Intn(20))*1000, 0)
	default:
		account.Balance = b.cents(500000, 4500000)
	}
	return account
}

// accountTransactions generates the account's history, newest first. Every
// account with activity has at least one transaction dated today.
func (b *builder) accountTransactions(user bank.User, account bank.Account, kind bank.AccountKind) []bank.Transaction {
	var txs []bank.Transaction
	add := func(day int, amount decimal.Decimal, dir bank.Direction, name, category, icon string) {
		date := b.timeOnDay(day)
		status := bank.StatusCompleted
		if dir == bank.DirectionOutgoing && day <= 1 && b.rng.Intn(3) == 0 {
			status = bank.StatusPending
		}
		if dir == bank.DirectionOutgoing {
			amount = amount.Neg()
		}
		txs = append(txs, bank.Transaction{
			ID:        b.id(),
			UserID:    user.ID,
			AccountID: account.ID,
			Date:      date,
			Merchant:  b.title.String(name),
			Category:  category,
			Icon:      icon,
			Amount:    amount,
			Direction: dir,
			Status:    status,
		})
	}

	switch kind {
	case bank.AccountKindChecking:
		for day := 0; day < b.opts.HistoryDays; day++ {
			purchases := b.rng.Intn(3)
			if day == 0 && purchases == 0 {
				purchases = 1
			}
			for i := 0; i < purchases; i++ {
				m := merchants[b.rng.Intn(len(merchants))]
				add(day, b.cents(m.minCents, m.maxCents), bank.DirectionOutgoing, m.name, m.category, m.icon)
			}
			if day%14 == 3 {
				add(day, b.cents(210000, 360000), bank.DirectionIncoming, "payroll direct deposit", "income", "briefcase")
			}
		}
	case bank.AccountKindCD:
		add(0, interestFor(account.Balance, account.InterestRate), bank.DirectionIncoming, "interest payment", "interest", "percent")
		for day := 30; day < b.opts.HistoryDays; day += 30 {
			add(day, interestFor(account.Balance, account.InterestRate), bank.DirectionIncoming, "interest payment", "interest", "percent")
		}
	default:
		add(0, b.cents(5000, 50000), bank.DirectionIncoming, "transfer from checking", "transfer", "arrow-down")
		for day := 7; day < b.opts.HistoryDays; day += 7 + b.rng.Intn(7) {
			if b.rng.Intn(4) == 0 {
				add(day, b.cents(10000, 80000), bank.DirectionOutgoing, "transfer to checking", "transfer", "arrow-up")
			} else {
				add(day, b.cents(5000, 50000), bank.DirectionIncoming, "transfer from checking", "transfer", "arrow-down")
			}
		}
		for day := 30; day < b.opts.HistoryDays; day += 30 {
			add(day, interestFor(account.Balance, account.InterestRate), bank.DirectionIncoming, "interest payment", "interest", "percent")
		}
	}

	bank.SortNewestFirst(txs)
	if txs == nil {
		txs = []bank.Transaction{}
	}
	return txs
}

// timeOnDay picks a time on the given day, never later than now.
func (b *builder) timeOnDay(daysAgo int) time.Time {
	day := b.daysAgo(daysAgo)
	span := 24 * time.Hour
	if daysAgo == 0 {
		span = b.now.Sub(day)
	}
	if span <= time.Second {
		return day
	}
	offset := time.Duration(b.rng.Int63n(int64(span / time.Second)))
	return day.Add(offset * time.Second)
}

func (b *builder) newCard(user bank.User, n int) bank.CreditCard {
	product := cardProducts[(b.rng.Intn(len(cardProducts))+n)%len(cardProducts)]
	limit := decimal.New(creditLimits[b.rng.Intn(len(creditLimits))], 0)
	maxCents := limit.Mul(decimal.NewFromInt(60)).IntPart() // 60% of the limit, in cents
	balance := b.cents(0, maxCents)

	card := bank.NewCreditCard(stableID("card", user.Username, strconv.Itoa(n)), user.ID, limit, balance)
	card.Name = b.title.String(product.name)
	card.Network = b.title.String(product.network)
	card.Last4 = b.digits(4)
	card.DueDate = b.daysAgo(-(5 + b.rng.Intn(21)))
	card.MinimumPayment = minimumPayment(balance)
	if product.rewards != "" {
		card.RewardsProgram = b.title.String(product.rewards)
		rewards := b.cents(0, 45000)
		card.RewardsBalance = &rewards
	}
	return card
}

func minimumPayment(balance decimal.Decimal) decimal.Decimal {
	if balance.IsZero() {
		return decimal.Zero
	}
	floor := decimal.NewFromInt(25)
	pct := balance.Mul(decimal.New(2, -2)).Round(2)
	if pct.LessThan(floor) {
		return decimal.Min(floor, balance)
	}
	return pct
}

func (b *builder) newLoan(user bank.User, kind string, n int) bank.Loan {
	terms, ok := loanCatalog[kind]
	if !ok {
		panic(fmt.Sprintf("unknown loan kind %q", kind))
	}

	principal := decimal.New(terms.minAmount+b.rng.Int63n(terms.maxAmount-terms.minAmount+1), 0)
	rate := decimal.New(terms.rateBps, -4)
	made := 1 + b.rng.Intn(terms.term-1)

	p, _ := principal.Float64()
	r, _ := rate.Float64()
	monthly, remaining := amortize(p, r/12, terms.term, made)

	nextPayment := dateOnly(b.now).AddDate(0, 1, 0)
	nextPayment = time.Date(nextPayment.Year(), nextPayment.Month(), 1, 0, 0, 0, 0, nextPayment.Location())

	return bank.Loan{
		ID:                stableID("loan", user.Username, kind, strconv.Itoa(n)),
		UserID:            user.ID,
		Kind:              kind,
		OriginalAmount:    principal,
		CurrentBalance:    decimal.NewFromFloat(remaining).Round(2),
		InterestRate:      rate,
		MonthlyPayment:    decimal.NewFromFloat(monthly).Round(2),
		NextPaymentDate:   nextPayment,
		TermPayments:      terms.term,
		PaymentsMade:      made,
		PaymentsRemaining: terms.term - made,
	}
}

// amortize returns the fixed monthly payment and the balance left after paid
// payments for a fully amortizing loan.
func amortize(principal, monthlyRate float64, term, paid int) (payment, balance float64) {
	if monthlyRate == 0 {
		payment = principal / float64(term)
		return payment, principal - payment*float64(paid)
	}
	growth := math.Pow(1+monthlyRate, float64(term))
	payment = principal * monthlyRate * growth / (growth - 1)
	grown := math.Pow(1+monthlyRate, float64(paid))
	balance = principal*grown - payment*(grown-1)/monthlyRate
	return payment, math.Max(balance, 0)
}

func interestFor(balance, annualRate decimal.Decimal) decimal.Decimal {
	interest := balance.Mul(annualRate).Div(decimal.NewFromInt(12)).Round(2)
	if !interest.IsPositive() {
		return decimal.New(1, -2)
	}
	return interest
}

// settleBalances makes the opening balance plus history the current balance
// and holds pending outgoing amounts out of the available balance.
func settleBalances(account *bank.Account, txs []bank.Transaction) {
	balance := account.Balance
	held := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.Amount)
		if tx.Status == bank.StatusPending && tx.Direction == bank.DirectionOutgoing {
			held = held.Add(tx.Amount.Abs())
		}
	}
	account.Balance = balance
	account.AvailableBalance = balance.Sub(held)
}

// derive fills the per-user grouped transactions and category totals.
func (b *builder) derive() {
	for _, u := range b.ds.Users {
		txs := b.ds.UserTransactions(u.ID)
		b.ds.GroupedTransactions[u.ID] = bank.GroupByDate(txs, b.now)
		b.ds.CategoryTotals[u.ID] = bank.SumCategories(txs)
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
