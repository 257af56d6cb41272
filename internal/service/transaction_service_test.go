package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"minibank/internal/infrastructure/lock"
	"minibank/internal/model"
	"minibank/internal/repository/memory"
	"minibank/pkg/metrics"
)

type testEnv struct {
	svc      *TransactionService
	accounts *memory.AccountRepository
	ledger   *memory.TransactionRepository
	outbox   *memory.OutboxRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	accounts := memory.NewAccountRepository()
	ledger := memory.NewTransactionRepository()
	outbox := memory.NewOutboxRepository()
	svc := NewTransactionService(accounts, ledger, outbox, lock.NewLocalLocker(), metrics.NewCollector(), "test.events")
	return &testEnv{svc: svc, accounts: accounts, ledger: ledger, outbox: outbox}
}

func (e *testEnv) seedAccount(t *testing.T, userID int64, number string, balance int64) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:        userID,
		FirstName:     "Test",
		LastName:      "Holder",
		BankName:      "MINIBANK",
		AccountNumber: number,
		Balance:       balance,
	}
	if err := e.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

func (e *testEnv) balance(t *testing.T, id int64) int64 {
	t.Helper()
	account, err := e.accounts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to read account %d: %v", id, err)
	}
	return account.Balance
}

func TestTopUpCreditsBalanceAndLedger(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 100000)

	result, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 30000, Description: "topup from wallet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.balance(t, account.ID); got != 130000 {
		t.Errorf("expected balance 130000, got %d", got)
	}
	if result.Balance != 130000 {
		t.Errorf("expected result balance 130000, got %d", result.Balance)
	}
	if result.Message != "top up successful" {
		t.Errorf("unexpected message: %q", result.Message)
	}

	entries := env.allEntries(t, account.ID)
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Kind != model.KindTopUp || entry.Amount != 30000 || entry.BalanceBefore != 100000 {
		t.Errorf("unexpected ledger entry: %+v", entry)
	}
	if entry.Description != "topup from wallet" {
		t.Errorf("unexpected description: %q", entry.Description)
	}
}

func TestTopUpDefaultsDescriptionToKind(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 100000)

	if _, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 20000, Description: "   "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := env.allEntries(t, account.ID)
	if len(entries) != 1 || entries[0].Description != model.KindTopUp {
		t.Errorf("expected description %q, got %+v", model.KindTopUp, entries)
	}
}

func TestValidationRejectsBeforeMutation(t *testing.T) {
	tests := []struct {
		name string
		run  func(env *testEnv, account *model.Account) error
	}{
		{
			name: "topup below minimum",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 19999})
				return err
			},
		},
		{
			name: "withdraw below minimum",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: 40000})
				return err
			},
		},
		{
			name: "amount below five digits",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 9999})
				return err
			},
		},
		{
			name: "zero amount",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 0})
				return err
			},
		},
		{
			name: "negative amount",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: -50000})
				return err
			},
		},
		{
			name: "transfer without destination",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.Transfer(context.Background(), account, TransactionRequest{Amount: 25000})
				return err
			},
		},
		{
			name: "transfer to itself",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.Transfer(context.Background(), account, TransactionRequest{Amount: 25000, DestinationNumber: account.AccountNumber})
				return err
			},
		},
		{
			name: "non-numeric destination",
			run: func(env *testEnv, account *model.Account) error {
				_, err := env.svc.Transfer(context.Background(), account, TransactionRequest{Amount: 25000, DestinationNumber: "abc123"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			account := env.seedAccount(t, 1, "12345678", 500000)

			err := tt.run(env, account)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := env.balance(t, account.ID); got != 500000 {
				t.Errorf("balance mutated on rejected input: %d", got)
			}
			if n := env.ledger.CountForAccount(account.ID); n != 0 {
				t.Errorf("ledger written on rejected input: %d entries", n)
			}
		})
	}
}

func TestWithdrawDebitsBalance(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 200000)

	result, err := env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.balance(t, account.ID); got != 100000 {
		t.Errorf("expected balance 100000, got %d", got)
	}
	if result.Message != "withdraw successful" {
		t.Errorf("unexpected message: %q", result.Message)
	}

	entries := env.allEntries(t, account.ID)
	if len(entries) != 1 || entries[0].Kind != model.KindWithdraw || entries[0].BalanceBefore != 200000 {
		t.Errorf("unexpected ledger entries: %+v", entries)
	}
}

func TestWithdrawRejectsNonMultiple(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 200000)

	_, err := env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: 75000})

	var be *BusinessRuleError
	if !errors.As(err, &be) || be.Reason != ReasonWithdrawNotMultiple {
		t.Fatalf("expected withdraw-not-multiple error, got %v", err)
	}
	if got := env.balance(t, account.ID); got != 200000 {
		t.Errorf("balance mutated on rejected withdrawal: %d", got)
	}
	if n := env.ledger.CountForAccount(account.ID); n != 0 {
		t.Errorf("ledger written on rejected withdrawal: %d entries", n)
	}
}

func TestWithdrawRejectsInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 40000)

	_, err := env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: 50000})

	var be *BusinessRuleError
	if !errors.As(err, &be) || be.Reason != ReasonInsufficientBalance {
		t.Fatalf("expected insufficient-balance error, got %v", err)
	}
	if got := env.balance(t, account.ID); got != 40000 {
		t.Errorf("balance mutated: %d", got)
	}
}

func TestTransferMovesMoneyBetweenAccounts(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedAccount(t, 1, "12345678", 300000)
	dest := env.seedAccount(t, 2, "87654321", 50000)

	result, err := env.svc.Transfer(context.Background(), source, TransactionRequest{
		Amount:            100000,
		Description:       "rent",
		DestinationNumber: "87654321",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "transfer successful" {
		t.Errorf("unexpected message: %q", result.Message)
	}

	if got := env.balance(t, source.ID); got != 200000 {
		t.Errorf("expected source balance 200000, got %d", got)
	}
	if got := env.balance(t, dest.ID); got != 150000 {
		t.Errorf("expected destination balance 150000, got %d", got)
	}

	sourceEntries := env.allEntries(t, source.ID)
	if len(sourceEntries) != 1 {
		t.Fatalf("expected 1 source entry, got %d", len(sourceEntries))
	}
	debit := sourceEntries[0]
	if debit.Kind != model.KindTransfer || debit.Amount != 100000 || debit.BalanceBefore != 300000 {
		t.Errorf("unexpected debit entry: %+v", debit)
	}
	if debit.Description != "rent" {
		t.Errorf("unexpected debit description: %q", debit.Description)
	}

	destEntries := env.allEntries(t, dest.ID)
	if len(destEntries) != 1 {
		t.Fatalf("expected 1 destination entry, got %d", len(destEntries))
	}
	credit := destEntries[0]
	if credit.Kind != model.KindTopUp || credit.Amount != 100000 || credit.BalanceBefore != 50000 {
		t.Errorf("unexpected credit entry: %+v", credit)
	}
	if credit.Description != "transfer from 12345678" {
		t.Errorf("unexpected credit description: %q", credit.Description)
	}
}

func TestTransferRejectsUnknownDestination(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedAccount(t, 1, "12345678", 300000)

	_, err := env.svc.Transfer(context.Background(), source, TransactionRequest{
		Amount:            100000,
		DestinationNumber: "99999999",
	})

	var be *BusinessRuleError
	if !errors.As(err, &be) || be.Reason != ReasonDestinationNotFound {
		t.Fatalf("expected destination-not-found error, got %v", err)
	}
	if got := env.balance(t, source.ID); got != 300000 {
		t.Errorf("source mutated: %d", got)
	}
	if n := env.ledger.CountForAccount(source.ID); n != 0 {
		t.Errorf("ledger written: %d entries", n)
	}
}

func TestBalanceUpdateFailureRemovesLedgerEntry(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 100000)
	env.accounts.FailUpdateBalanceFor[account.ID] = true

	_, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 30000})

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if n := env.ledger.CountForAccount(account.ID); n != 0 {
		t.Errorf("compensation left %d ledger entries", n)
	}
	if got := env.balance(t, account.ID); got != 100000 {
		t.Errorf("balance mutated: %d", got)
	}
}

func TestTransferCreditAppendFailureRevertsSourceDebit(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedAccount(t, 1, "12345678", 300000)
	dest := env.seedAccount(t, 2, "87654321", 50000)
	env.ledger.FailAppendForAccount[dest.ID] = true

	_, err := env.svc.Transfer(context.Background(), source, TransactionRequest{
		Amount:            100000,
		DestinationNumber: "87654321",
	})

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if got := env.balance(t, source.ID); got != 300000 {
		t.Errorf("source debit not reverted: %d", got)
	}
	if got := env.balance(t, dest.ID); got != 50000 {
		t.Errorf("destination mutated: %d", got)
	}
	if n := env.ledger.CountForAccount(source.ID); n != 0 {
		t.Errorf("source ledger not compensated: %d entries", n)
	}
	if n := env.ledger.CountForAccount(dest.ID); n != 0 {
		t.Errorf("destination ledger written: %d entries", n)
	}
}

func TestTransferCreditBalanceFailureRevertsBothLegs(t *testing.T) {
	env := newTestEnv(t)
	source := env.seedAccount(t, 1, "12345678", 300000)
	dest := env.seedAccount(t, 2, "87654321", 50000)
	env.accounts.FailUpdateBalanceFor[dest.ID] = true

	_, err := env.svc.Transfer(context.Background(), source, TransactionRequest{
		Amount:            100000,
		DestinationNumber: "87654321",
	})

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if got := env.balance(t, source.ID); got != 300000 {
		t.Errorf("source debit not reverted: %d", got)
	}
	if got := env.balance(t, dest.ID); got != 50000 {
		t.Errorf("destination mutated: %d", got)
	}
	if n := env.ledger.CountForAccount(source.ID) + env.ledger.CountForAccount(dest.ID); n != 0 {
		t.Errorf("ledger not fully compensated: %d entries", n)
	}
}

func TestCommittedTransactionEnqueuesEvent(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 100000)

	if _, err := env.svc.TopUp(context.Background(), account, TransactionRequest{Amount: 30000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, err := env.outbox.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("failed to list outbox: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(pending))
	}
	if pending[0].Topic != "test.events" {
		t.Errorf("unexpected topic: %q", pending[0].Topic)
	}
}

func TestConcurrentWithdrawalsSerialize(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, 1, "12345678", 100000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Withdraw(context.Background(), account, TransactionRequest{Amount: 50000})
		}(i)
	}
	wg.Wait()

	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("unexpected errors: %v, %v", errs[0], errs[1])
	}
	if got := env.balance(t, account.ID); got != 0 {
		t.Errorf("expected balance 0 after two serialized withdrawals, got %d", got)
	}
	if n := env.ledger.CountForAccount(account.ID); n != 2 {
		t.Errorf("expected 2 ledger entries, got %d", n)
	}
}

func (e *testEnv) allEntries(t *testing.T, accountID int64) []*model.Transaction {
	t.Helper()
	start := timeMustParse(t, "2000-01-01")
	end := timeMustParse(t, "2100-01-01")
	entries, err := e.ledger.ListByAccountAndRange(context.Background(), accountID, start, end)
	if err != nil {
		t.Fatalf("failed to list ledger entries: %v", err)
	}
	return entries
}
