// Package memory provides in-memory implementations of the repository
// interfaces. They back the service and handler tests and carry
// failure-injection hooks so rollback paths can be exercised without a
// database.
package memory

import (
	"minibank/internal/repository"
)

var (
	_ repository.AccountStore = (*AccountRepository)(nil)
	_ repository.LedgerStore  = (*TransactionRepository)(nil)
	_ repository.UserStore    = (*UserRepository)(nil)
	_ repository.OutboxStore  = (*OutboxRepository)(nil)
)
