package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"minibank/internal/infrastructure/lock"
	"minibank/internal/model"
	"minibank/internal/repository"
	"minibank/pkg/idgen"
	"minibank/pkg/metrics"
)

// Kind-specific amount rules, in the smallest currency unit.
const (
	MinTopUpAmount    = 20000
	MinWithdrawAmount = 50000
	MinTransferAmount = 20000
	WithdrawMultiple  = 50000

	minAmountDigits = 5
	maxAmountDigits = 20
)

// TransactionService owns every balance mutation. It validates a request,
// debits/credits account balances and records ledger entries, all under a
// per-account lock so concurrent requests against one account serialize.
//
// Every mutation follows the same choreography:
//
//	append ledger entry -> commit new balance -> (transfer: credit leg)
//
// A store failure after the ledger append triggers a compensating delete of
// the entry; a failed transfer credit leg additionally reverts the source
// debit. Success therefore implies the ledger and the balances agree.
type TransactionService struct {
	accounts   repository.AccountStore
	ledger     repository.LedgerStore
	outbox     repository.OutboxStore
	locker     lock.AccountLocker
	collector  *metrics.Collector
	eventTopic string
}

func NewTransactionService(
	accounts repository.AccountStore,
	ledger repository.LedgerStore,
	outbox repository.OutboxStore,
	locker lock.AccountLocker,
	collector *metrics.Collector,
	eventTopic string,
) *TransactionService {
	return &TransactionService{
		accounts:   accounts,
		ledger:     ledger,
		outbox:     outbox,
		locker:     locker,
		collector:  collector,
		eventTopic: eventTopic,
	}
}

// TransactionRequest is a validated-on-entry money operation. Description
// defaults to the kind name when blank. DestinationNumber is only read for
// transfers.
type TransactionRequest struct {
	Amount            int64  `json:"amount"`
	Description       string `json:"description"`
	DestinationNumber string `json:"destination_number"`
}

type TransactionResult struct {
	Message     string `json:"message"`
	ReferenceNo string `json:"reference_no"`
	Balance     int64  `json:"balance"`
}

// TopUp credits the acting account.
func (s *TransactionService) TopUp(ctx context.Context, account *model.Account, req TransactionRequest) (*TransactionResult, error) {
	return s.process(ctx, account, model.KindTopUp, req)
}

// Withdraw debits the acting account. The amount must be an exact multiple
// of WithdrawMultiple.
func (s *TransactionService) Withdraw(ctx context.Context, account *model.Account, req TransactionRequest) (*TransactionResult, error) {
	return s.process(ctx, account, model.KindWithdraw, req)
}

// Transfer debits the acting account and credits the account identified by
// req.DestinationNumber. Both legs commit or neither does.
func (s *TransactionService) Transfer(ctx context.Context, account *model.Account, req TransactionRequest) (*TransactionResult, error) {
	return s.process(ctx, account, model.KindTransfer, req)
}

func (s *TransactionService) process(ctx context.Context, account *model.Account, kind string, req TransactionRequest) (*TransactionResult, error) {
	start := time.Now()
	result, err := s.execute(ctx, account, kind, req)
	if s.collector != nil {
		s.collector.RecordTransaction(kind, outcomeOf(err), req.Amount, time.Since(start))
	}
	return result, err
}

func (s *TransactionService) execute(ctx context.Context, account *model.Account, kind string, req TransactionRequest) (*TransactionResult, error) {
	if ve := validateRequest(kind, req); ve != nil {
		return nil, ve
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = kind
	}

	if kind == model.KindWithdraw && req.Amount%WithdrawMultiple != 0 {
		return nil, &BusinessRuleError{
			Reason:  ReasonWithdrawNotMultiple,
			Message: fmt.Sprintf("withdrawal amount must be a multiple of %d", WithdrawMultiple),
		}
	}

	// Resolve the destination before locking so its id can be part of the
	// lock set.
	var destination *model.Account
	if kind == model.KindTransfer {
		if strings.TrimSpace(req.DestinationNumber) == account.AccountNumber {
			return nil, &ValidationError{Fields: map[string][]string{
				"destination_number": {"destination must differ from the source account"},
			}}
		}
		var err error
		destination, err = s.accounts.GetByAccountNumber(ctx, strings.TrimSpace(req.DestinationNumber))
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return nil, &BusinessRuleError{
					Reason:  ReasonDestinationNotFound,
					Message: "destination account not found",
				}
			}
			return nil, fmt.Errorf("failed to look up destination account: %w", err)
		}
	}

	lockIDs := []int64{account.ID}
	if destination != nil {
		lockIDs = append(lockIDs, destination.ID)
	}
	release, err := s.locker.Acquire(ctx, lockIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer release()

	// Balances are re-read inside the lock; anything read before it may be
	// stale.
	source, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	if destination != nil {
		destination, err = s.accounts.GetByID(ctx, destination.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read destination account: %w", err)
		}
	}

	balanceBefore := source.Balance
	var newBalance int64
	if kind == model.KindTopUp {
		newBalance = balanceBefore + req.Amount
	} else {
		if balanceBefore < req.Amount {
			return nil, &BusinessRuleError{
				Reason:  ReasonInsufficientBalance,
				Message: "insufficient balance",
			}
		}
		newBalance = balanceBefore - req.Amount
	}

	entry := &model.Transaction{
		ReferenceNo:   idgen.GenerateReferenceNo(),
		AccountID:     source.ID,
		Kind:          kind,
		Description:   description,
		BalanceBefore: balanceBefore,
		Amount:        req.Amount,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, &PersistenceError{Op: opName(kind), Err: err}
	}

	if err := s.accounts.UpdateBalance(ctx, source.ID, newBalance); err != nil {
		if compErr := s.compensateEntry(ctx, entry.ID); compErr != nil {
			return nil, &ConsistencyError{
				Op:  opName(kind),
				Err: fmt.Errorf("balance update failed (%v) and ledger entry could not be removed: %w", err, compErr),
			}
		}
		return nil, &PersistenceError{Op: opName(kind), Err: err}
	}

	if kind == model.KindTransfer {
		if err := s.creditDestination(ctx, source, destination, req.Amount); err != nil {
			return nil, s.revertSourceDebit(ctx, source.ID, balanceBefore, entry.ID, err)
		}
	}

	s.publishEvent(ctx, entry, newBalance)

	return &TransactionResult{
		Message:     successMessage(kind),
		ReferenceNo: entry.ReferenceNo,
		Balance:     newBalance,
	}, nil
}

// creditDestination writes the credit leg of a transfer: a TOPUP ledger
// entry on the destination plus its balance update. On failure any entry
// it appended is removed before returning.
func (s *TransactionService) creditDestination(ctx context.Context, source, destination *model.Account, amount int64) error {
	entry := &model.Transaction{
		ReferenceNo:   idgen.GenerateReferenceNo(),
		AccountID:     destination.ID,
		Kind:          model.KindTopUp,
		Description:   "transfer from " + source.AccountNumber,
		BalanceBefore: destination.Balance,
		Amount:        amount,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("credit ledger append failed: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, destination.ID, destination.Balance+amount); err != nil {
		if compErr := s.compensateEntry(ctx, entry.ID); compErr != nil {
			return fmt.Errorf("credit balance update failed (%v), credit entry could not be removed: %w", err, compErr)
		}
		return fmt.Errorf("credit balance update failed: %w", err)
	}
	return nil
}

// revertSourceDebit undoes the committed source leg after the credit leg
// of a transfer failed: the source must never remain debited without the
// matching credit. If the reversal itself fails the operation surfaces a
// ConsistencyError.
func (s *TransactionService) revertSourceDebit(ctx context.Context, sourceID, balanceBefore, entryID int64, cause error) error {
	if err := s.accounts.UpdateBalance(ctx, sourceID, balanceBefore); err != nil {
		return &ConsistencyError{
			Op:  opName(model.KindTransfer),
			Err: fmt.Errorf("credit leg failed (%v) and source debit could not be reverted: %w", cause, err),
		}
	}
	if err := s.compensateEntry(ctx, entryID); err != nil {
		return &ConsistencyError{
			Op:  opName(model.KindTransfer),
			Err: fmt.Errorf("credit leg failed (%v) and source ledger entry could not be removed: %w", cause, err),
		}
	}
	return &PersistenceError{Op: opName(model.KindTransfer), Err: cause}
}

func (s *TransactionService) compensateEntry(ctx context.Context, entryID int64) error {
	if err := s.ledger.Delete(ctx, entryID); err != nil {
		log.Printf("[TransactionService] compensation failed for ledger entry %d: %v", entryID, err)
		return err
	}
	if s.collector != nil {
		s.collector.RecordCompensation()
	}
	return nil
}

// publishEvent enqueues a transaction event for the outbox sender. Event
// delivery is best-effort and never fails a committed transaction.
func (s *TransactionService) publishEvent(ctx context.Context, entry *model.Transaction, balanceAfter int64) {
	if s.outbox == nil {
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"reference_no":   entry.ReferenceNo,
		"account_id":     entry.AccountID,
		"kind":           entry.Kind,
		"amount":         entry.Amount,
		"balance_before": entry.BalanceBefore,
		"balance_after":  balanceAfter,
		"created_at":     time.Now().Format(time.RFC3339),
	})

	msg := &model.OutboxMessage{
		MessageKey: entry.ReferenceNo,
		Topic:      s.eventTopic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outbox.Append(ctx, msg); err != nil {
		log.Printf("[TransactionService] failed to enqueue event %s: %v", entry.ReferenceNo, err)
	}
}

// validateRequest applies the input rules shared by all three kinds.
// Returns nil when the request is well formed.
func validateRequest(kind string, req TransactionRequest) *ValidationError {
	ve := &ValidationError{}

	if req.Amount <= 0 {
		ve.add("amount", "amount must be a positive number")
	} else {
		digits := len(strconv.FormatInt(req.Amount, 10))
		if digits < minAmountDigits || digits > maxAmountDigits {
			ve.add("amount", fmt.Sprintf("amount must be between %d and %d digits", minAmountDigits, maxAmountDigits))
		}
		if req.Amount < minAmount(kind) {
			ve.add("amount", fmt.Sprintf("minimum %s amount is %d", strings.ToLower(kind), minAmount(kind)))
		}
	}

	if len(req.Description) > 255 {
		ve.add("description", "description must be at most 255 characters")
	}

	if kind == model.KindTransfer {
		dest := strings.TrimSpace(req.DestinationNumber)
		switch {
		case dest == "":
			ve.add("destination_number", "destination account number is required")
		case !isDigits(dest) || len(dest) > 50:
			ve.add("destination_number", "destination account number must be numeric with at most 50 digits")
		}
	}

	if ve.empty() {
		return nil
	}
	return ve
}

func minAmount(kind string) int64 {
	switch kind {
	case model.KindWithdraw:
		return MinWithdrawAmount
	case model.KindTransfer:
		return MinTransferAmount
	default:
		return MinTopUpAmount
	}
}

func successMessage(kind string) string {
	switch kind {
	case model.KindWithdraw:
		return "withdraw successful"
	case model.KindTransfer:
		return "transfer successful"
	default:
		return "top up successful"
	}
}

func opName(kind string) string {
	return strings.ToLower(kind)
}

func outcomeOf(err error) string {
	if err == nil {
		return "committed"
	}
	var ve *ValidationError
	var be *BusinessRuleError
	if errors.As(err, &ve) || errors.As(err, &be) {
		return "rejected"
	}
	return "failed"
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
