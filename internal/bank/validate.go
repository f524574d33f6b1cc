package bank

import (
	"errors"
	"fmt"
)

// Validate checks the referential and arithmetic invariants of a dataset and
// returns every violation joined into one error.
func Validate(d *Dataset) error {
	if d == nil {
		return errors.New("dataset is nil")
	}

	var errs []error
	users := make(map[string]struct{}, len(d.Users))
	for _, u := range d.Users {
		if u.ID == "" {
			return errors.New("user with empty ID")
		}
		if _, dup := users[u.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate user %s", u.ID))
		}
		users[u.ID] = struct{}{}
	}

	owned := func(kind, id, userID string) {
		if _, ok := users[userID]; !ok {
			errs = append(errs, fmt.Errorf("%s %s references unknown user %q", kind, id, userID))
		}
	}

	accounts := make(map[string]string, len(d.Accounts))
	for _, a := range d.Accounts {
		owned("account", a.ID, a.UserID)
		accounts[a.ID] = a.UserID
	}

	for _, c := range d.Cards {
		owned("card", c.ID, c.UserID)
		if !c.AvailableCredit.Add(c.CurrentBalance).Equal(c.CreditLimit) {
			errs = append(errs, fmt.Errorf("card %s: available credit %s + balance %s != limit %s",
				c.ID, c.AvailableCredit, c.CurrentBalance, c.CreditLimit))
		}
	}

	for _, l := range d.Loans {
		owned("loan", l.ID, l.UserID)
		if l.PaymentsMade+l.PaymentsRemaining != l.TermPayments {
			errs = append(errs, fmt.Errorf("loan %s: %d made + %d remaining != term %d",
				l.ID, l.PaymentsMade, l.PaymentsRemaining, l.TermPayments))
		}
	}

	for userID, byAccount := range d.Transactions {
		for accountID, txs := range byAccount {
			if owner, ok := accounts[accountID]; !ok || owner != userID {
				errs = append(errs, fmt.Errorf("transactions keyed under user %q and unknown account %q", userID, accountID))
			}
			for _, tx := range txs {
				owned("transaction", tx.ID, tx.UserID)
				if tx.UserID != userID || tx.AccountID != accountID {
					errs = append(errs, fmt.Errorf("transaction %s filed under %s/%s but owned by %s/%s",
						tx.ID, userID, accountID, tx.UserID, tx.AccountID))
				}
			}
		}
	}

	return errors.Join(errs...)
}
