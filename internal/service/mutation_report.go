package service

import (
	"context"
	"fmt"
	"time"

	"minibank/internal/model"
)

// MaxMutationRangeDays bounds the mutation report window, inclusive of
// both end dates.
const MaxMutationRangeDays = 30

const mutationDateLayout = "2006-01-02"

type MutationReportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MutationReport distinguishes an empty period from a populated one via
// its Message.
type MutationReport struct {
	Message string               `json:"message"`
	Entries []*model.Transaction `json:"entries,omitempty"`
}

// GetMutationReport returns the account's ledger entries created within
// [start_date, end_date], ordered by update time ascending. Windows longer
// than MaxMutationRangeDays are rejected.
func (s *TransactionService) GetMutationReport(ctx context.Context, account *model.Account, req MutationReportRequest) (*MutationReport, error) {
	ve := &ValidationError{}

	var start, end time.Time
	var err error
	if req.StartDate == "" {
		ve.add("start_date", "start_date is required")
	} else if start, err = time.Parse(mutationDateLayout, req.StartDate); err != nil {
		ve.add("start_date", "start_date must be a date in YYYY-MM-DD format")
	}
	if req.EndDate == "" {
		ve.add("end_date", "end_date is required")
	} else if end, err = time.Parse(mutationDateLayout, req.EndDate); err != nil {
		ve.add("end_date", "end_date must be a date in YYYY-MM-DD format")
	}
	if ve.empty() && end.Before(start) {
		ve.add("end_date", "end_date must be on or after start_date")
	}
	if !ve.empty() {
		return nil, ve
	}

	// A window of exactly MaxMutationRangeDays calendar days is the widest
	// allowed: [start, start+29d].
	if !end.Before(start.AddDate(0, 0, MaxMutationRangeDays)) {
		return nil, &BusinessRuleError{
			Reason:  ReasonRangeTooLarge,
			Message: fmt.Sprintf("mutation report period must not exceed %d days", MaxMutationRangeDays),
		}
	}

	rangeEnd := end.Add(24*time.Hour - time.Nanosecond)
	entries, err := s.ledger.ListByAccountAndRange(ctx, account.ID, start, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}

	if len(entries) == 0 {
		return &MutationReport{Message: "no transactions in this period"}, nil
	}
	return &MutationReport{Message: "success", Entries: entries}, nil
}
