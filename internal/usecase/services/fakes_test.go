package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/bank-ledger/internal/commons"
	"github.com/api-sage/bank-ledger/internal/domain"
	"github.com/api-sage/bank-ledger/internal/usecase/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errStorageDown = errors.New("storage unavailable")

// memStore backs the in-memory repositories used by the service
// tests. Writes inside a unit apply immediately and push an undo onto
// the unit; a failing unit replays the undos in reverse, mirroring a
// rolled-back database transaction. Per-account mutexes held until
// the unit finishes stand in for row locks.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]*memAccount
	txs       []memTx
	audits    []domain.AuditEntry
	feeTypes  map[string]domain.FeeType
	customers map[string]domain.Customer
	operators map[string]domain.Operator
	seq       int

	// failRecordAt makes the Nth transaction Record call fail, to
	// exercise rollback of multi-step units.
	failRecordAt int
	recordCalls  int
}

type memAccount struct {
	rowLock sync.Mutex
	data    domain.Account
}

type memTx struct {
	rec domain.TransactionRecord
	seq int
}

type memUnit struct {
	store *memStore
	locks []*memAccount
	undo  []func()
}

func newStore() *memStore {
	return &memStore{
		accounts:  make(map[string]*memAccount),
		feeTypes:  make(map[string]domain.FeeType),
		customers: make(map[string]domain.Customer),
		operators: make(map[string]domain.Operator),
	}
}

func (s *memStore) RunInUnit(ctx context.Context, fn func(u domain.Unit) error) error {
	u := &memUnit{store: s}
	err := fn(u)
	if err != nil {
		s.mu.Lock()
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
		s.mu.Unlock()
	}
	for _, a := range u.locks {
		a.rowLock.Unlock()
	}
	return err
}

func unitOf(u domain.Unit) *memUnit {
	return u.(*memUnit)
}

func (s *memStore) nextSeq() int {
	s.seq++
	return s.seq
}

// seedAccount bypasses the repositories to install an account with a
// known balance. The matching ledger entry is added as a deposit so
// per-account sums stay consistent.
func (s *memStore) seedAccount(balance, overdraftLimit string) domain.Account {
	account := domain.Account{
		ID:             uuid.NewString(),
		CustomerID:     s.seedCustomer().ID,
		AccountNumber:  fmt.Sprintf("%010d", 1000000000+len(s.accounts)),
		AccountType:    domain.AccountTypeChecking,
		Currency:       "USD",
		Balance:        decimal.RequireFromString(balance),
		OverdraftLimit: decimal.RequireFromString(overdraftLimit),
		Status:         domain.AccountStatusActive,
		OpenedAt:       time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.mu.Lock()
	s.accounts[account.ID] = &memAccount{data: account}
	if !account.Balance.IsZero() {
		s.txs = append(s.txs, memTx{
			rec: domain.TransactionRecord{
				ID:          uuid.NewString(),
				AccountID:   account.ID,
				Type:        domain.TransactionTypeDeposit,
				Amount:      account.Balance,
				Description: "Initial deposit",
				CreatedAt:   time.Now(),
			},
			seq: s.nextSeq(),
		})
	}
	s.mu.Unlock()
	return account
}

func (s *memStore) seedCustomer() domain.Customer {
	customer := domain.Customer{
		ID:        uuid.NewString(),
		FirstName: "Ada",
		LastName:  "Byron",
		Email:     fmt.Sprintf("ada+%s@example.com", uuid.NewString()[:8]),
		CreatedAt: time.Now(),
	}
	s.customers[customer.ID] = customer
	return customer
}

func (s *memStore) balanceOf(accountID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID].data.Balance
}

func (s *memStore) auditsOf(actionType string) []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for _, entry := range s.audits {
		if entry.ActionType == actionType {
			out = append(out, entry)
		}
	}
	return out
}

// newServices wires the full service graph over one store.
func newServices(s *memStore) (*services.TransactionService, *services.AccountService, *services.FeeService, *services.ValidationService) {
	audit := services.NewAuditService(memAudits{s})
	transactions := services.NewTransactionService(s, memAccounts{s}, memTxs{s}, audit)
	accounts := services.NewAccountService(s, memAccounts{s}, memCustomers{s}, transactions, audit)
	fees := services.NewFeeService(s, memFees{s}, memAccounts{s}, transactions, audit)
	validation := services.NewValidationService(memAccounts{s}, memTxs{s})
	return transactions, accounts, fees, validation
}

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(ctx context.Context, u domain.Unit, account domain.Account) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.data.AccountNumber == account.AccountNumber {
			return domain.Account{}, fmt.Errorf("create account %s: %w", account.AccountNumber, commons.ErrDuplicateRecord)
		}
	}

	account.ID = uuid.NewString()
	account.OpenedAt = time.Now()
	account.UpdatedAt = account.OpenedAt
	r.s.accounts[account.ID] = &memAccount{data: account}

	id := account.ID
	unitOf(u).undo = append(unitOf(u).undo, func() { delete(r.s.accounts, id) })
	return account, nil
}

func (r memAccounts) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acct, ok := r.s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return acct.data, nil
}

func (r memAccounts) GetByNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, acct := range r.s.accounts {
		if acct.data.AccountNumber == accountNumber {
			return acct.data, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (r memAccounts) GetForUpdate(ctx context.Context, u domain.Unit, id string) (domain.Account, error) {
	r.s.mu.Lock()
	acct, ok := r.s.accounts[id]
	r.s.mu.Unlock()
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	acct.rowLock.Lock()
	unit := unitOf(u)
	unit.locks = append(unit.locks, acct)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return acct.data, nil
}

func (r memAccounts) ApplyBalanceChange(ctx context.Context, u domain.Unit, id string, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acct, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	old := acct.data.Balance
	acct.data.Balance = old.Add(delta)
	acct.data.UpdatedAt = time.Now()
	unitOf(u).undo = append(unitOf(u).undo, func() { acct.data.Balance = old })
	return nil
}

func (r memAccounts) UpdateStatus(ctx context.Context, u domain.Unit, id string, status domain.AccountStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acct, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	old := acct.data.Status
	acct.data.Status = status
	unitOf(u).undo = append(unitOf(u).undo, func() { acct.data.Status = old })
	return nil
}

func (r memAccounts) SetOverdraftLimit(ctx context.Context, u domain.Unit, id string, limit decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acct, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}

	old := acct.data.OverdraftLimit
	acct.data.OverdraftLimit = limit
	unitOf(u).undo = append(unitOf(u).undo, func() { acct.data.OverdraftLimit = old })
	return nil
}

func (r memAccounts) List(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Account, 0)
	for _, acct := range r.s.accounts {
		if filter.CustomerID != "" && acct.data.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && acct.data.Status != filter.Status {
			continue
		}
		if filter.AccountType != "" && acct.data.AccountType != filter.AccountType {
			continue
		}
		out = append(out, acct.data)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, len(out), nil
}

type memTxs struct{ s *memStore }

var knownTxTypes = map[domain.TransactionType]struct{}{
	domain.TransactionTypeDeposit:    {},
	domain.TransactionTypeWithdrawal: {},
	domain.TransactionTypeTransfer:   {},
	domain.TransactionTypeACHCredit:  {},
	domain.TransactionTypeACHDebit:   {},
	domain.TransactionTypeWire:       {},
}

func (r memTxs) Record(ctx context.Context, u domain.Unit, record domain.TransactionRecord) (domain.TransactionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.recordCalls++
	if r.s.failRecordAt > 0 && r.s.recordCalls == r.s.failRecordAt {
		return domain.TransactionRecord{}, errStorageDown
	}

	if _, ok := knownTxTypes[record.Type]; !ok {
		return domain.TransactionRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidTransactionType, record.Type)
	}

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now()
	r.s.txs = append(r.s.txs, memTx{rec: record, seq: r.s.nextSeq()})

	unitOf(u).undo = append(unitOf(u).undo, func() { r.s.txs = r.s.txs[:len(r.s.txs)-1] })
	return record, nil
}

func (r memTxs) sorted(match func(memTx) bool) []domain.TransactionRecord {
	out := make([]memTx, 0)
	for _, tx := range r.s.txs {
		if match(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].rec.CreatedAt.Equal(out[j].rec.CreatedAt) {
			return out[i].rec.CreatedAt.After(out[j].rec.CreatedAt)
		}
		return out[i].seq > out[j].seq
	})
	records := make([]domain.TransactionRecord, 0, len(out))
	for _, tx := range out {
		records = append(records, tx.rec)
	}
	return records
}

func (r memTxs) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.TransactionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	records := r.sorted(func(tx memTx) bool { return tx.rec.AccountID == accountID })
	if offset >= len(records) {
		return []domain.TransactionRecord{}, nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end], nil
}

func (r memTxs) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	records := r.sorted(func(tx memTx) bool {
		if filter.AccountID != "" && tx.rec.AccountID != filter.AccountID {
			return false
		}
		if filter.Type != "" && tx.rec.Type != filter.Type {
			return false
		}
		if filter.From != nil && tx.rec.CreatedAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && tx.rec.CreatedAt.After(*filter.To) {
			return false
		}
		return true
	})
	return records, len(records), nil
}

func (r memTxs) SumAll(ctx context.Context) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sum := decimal.Zero
	for _, tx := range r.s.txs {
		sum = sum.Add(tx.rec.Amount)
	}
	return sum, nil
}

func (r memTxs) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sum := decimal.Zero
	for _, tx := range r.s.txs {
		if tx.rec.AccountID == accountID {
			sum = sum.Add(tx.rec.Amount)
		}
	}
	return sum, nil
}

type memAudits struct{ s *memStore }

func (r memAudits) Append(ctx context.Context, u domain.Unit, entry domain.AuditEntry) (domain.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	r.s.audits = append(r.s.audits, entry)

	unitOf(u).undo = append(unitOf(u).undo, func() { r.s.audits = r.s.audits[:len(r.s.audits)-1] })
	return entry, nil
}

func (r memAudits) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.AuditEntry, 0)
	for _, entry := range r.s.audits {
		if filter.ActionType != "" && !strings.Contains(strings.ToLower(entry.ActionType), strings.ToLower(filter.ActionType)) {
			continue
		}
		if filter.TargetEntity != "" && !strings.Contains(strings.ToLower(entry.TargetEntity), strings.ToLower(filter.TargetEntity)) {
			continue
		}
		if filter.TargetID != "" && entry.TargetID != filter.TargetID {
			continue
		}
		if filter.OperatorID != "" && (entry.OperatorID == nil || *entry.OperatorID != filter.OperatorID) {
			continue
		}
		out = append(out, entry)
	}
	return out, len(out), nil
}

type memFees struct{ s *memStore }

func (r memFees) GetByName(ctx context.Context, feeName string) (domain.FeeType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	feeType, ok := r.s.feeTypes[feeName]
	if !ok {
		return domain.FeeType{}, commons.ErrRecordNotFound
	}
	return feeType, nil
}

func (r memFees) Upsert(ctx context.Context, feeType domain.FeeType) (domain.FeeType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.feeTypes[feeType.FeeName]; ok {
		feeType.ID = existing.ID
	} else {
		feeType.ID = uuid.NewString()
	}
	r.s.feeTypes[feeType.FeeName] = feeType
	return feeType, nil
}

func (r memFees) List(ctx context.Context) ([]domain.FeeType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.FeeType, 0, len(r.s.feeTypes))
	for _, feeType := range r.s.feeTypes {
		out = append(out, feeType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeeName < out[j].FeeName })
	return out, nil
}

type memCustomers struct{ s *memStore }

func (r memCustomers) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	customer.ID = uuid.NewString()
	customer.CreatedAt = time.Now()
	r.s.customers[customer.ID] = customer
	return customer, nil
}

func (r memCustomers) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	customer, ok := r.s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r memCustomers) Exists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.customers[id]
	return ok, nil
}

type memOperators struct{ s *memStore }

func (r memOperators) Create(ctx context.Context, operator domain.Operator) (domain.Operator, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.operators[operator.Username]; ok {
		return domain.Operator{}, commons.ErrDuplicateRecord
	}
	operator.ID = uuid.NewString()
	operator.CreatedAt = time.Now()
	r.s.operators[operator.Username] = operator
	return operator, nil
}

func (r memOperators) GetByUsername(ctx context.Context, username string) (domain.Operator, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	operator, ok := r.s.operators[username]
	if !ok {
		return domain.Operator{}, commons.ErrRecordNotFound
	}
	return operator, nil
}
