package common

import (
	"strconv"
	"strings"
	"summit/src/models"
	"summit/src/types"
	"sync"
	"time"

	"gorm.io/gorm"
)

// memStore is an in-memory Store used to exercise the matcher, lifecycle
// and upgrade engine without a database. Errors can be forced per method
// through failures to simulate transient store trouble.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	passes   map[uint]*models.Pass
	claims   map[uint]*models.PendingClaim
	txns     map[string]*models.Transaction
	records  []*models.UpgradeRecord
	nextID   uint
	failures map[string]error
	failOnce map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]*models.User),
		passes:   make(map[uint]*models.Pass),
		claims:   make(map[uint]*models.PendingClaim),
		txns:     make(map[string]*models.Transaction),
		failures: make(map[string]error),
		failOnce: make(map[string]error),
	}
}

func (m *memStore) fail(op string) error {
	if err, ok := m.failOnce[op]; ok {
		delete(m.failOnce, op)
		return err
	}
	return m.failures[op]
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	u.Email = strings.ToLower(u.Email)
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addPass(p models.Pass) *models.Pass {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.Status == "" {
		p.Status = types.PASS_ACTIVE
	}
	m.passes[p.ID] = &p
	return &p
}

func (m *memStore) FindUserByID(id uint) (*models.User, error) {
	if err := m.fail("FindUserByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) FindUserByUID(uid string) (*models.User, error) {
	if err := m.fail("FindUserByUID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UID == uid && uid != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindUserByEmail(email string) (*models.User, error) {
	if err := m.fail("FindUserByEmail"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) && email != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateUser(u *models.User) error {
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = m.id()
	u.Email = strings.ToLower(u.Email)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) AttachUID(userID uint, uid string) error {
	if err := m.fail("AttachUID"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.UID = uid
		return nil
	}
	return ErrNotFound
}

func (m *memStore) FindPass(id uint) (*models.Pass, error) {
	if err := m.fail("FindPass"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.passes[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) FindActivePass(userID uint) (*models.Pass, error) {
	if err := m.fail("FindActivePass"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if p.UserID == userID && p.Status == types.PASS_ACTIVE {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPassByBookingRef(ref string) (*models.Pass, error) {
	if err := m.fail("FindPassByBookingRef"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if p.BookingRef == ref || p.OrderRef == ref || strconv.FormatUint(uint64(p.ID), 10) == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPassByOrderRef(ref string) (*models.Pass, error) {
	if err := m.fail("FindPassByOrderRef"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if p.OrderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPassByTicketNo(fragment string) (*models.Pass, error) {
	if err := m.fail("FindPassByTicketNo"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if fragment == "" {
			continue
		}
		if strings.Contains(p.BookingRef, fragment) || strings.Contains(strconv.FormatUint(uint64(p.ID), 10), fragment) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPassByQRPayload(payload string) (*models.Pass, error) {
	if err := m.fail("FindPassByQRPayload"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if payload != "" && p.QRPayload == payload {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateActivePass(p *models.Pass) error {
	if err := m.fail("CreateActivePass"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.passes {
		if existing.UserID == p.UserID && existing.Status == types.PASS_ACTIVE {
			return ErrAlreadyHasPass
		}
	}
	p.ID = m.id()
	p.Status = types.PASS_ACTIVE
	cp := *p
	m.passes[p.ID] = &cp
	return nil
}

func (m *memStore) FindClaim(id uint) (*models.PendingClaim, error) {
	if err := m.fail("FindClaim"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[id]; ok {
		cp := *c
		if cp.PassID != nil {
			if p, ok := m.passes[*cp.PassID]; ok {
				pp := *p
				cp.Pass = &pp
			}
		}
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) FindPendingClaimByBookingRef(userID uint, bookingRef string) (*models.PendingClaim, error) {
	if err := m.fail("FindPendingClaimByBookingRef"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.UserID == userID && c.BookingRef == bookingRef && c.Status == types.CLAIM_PENDING {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CreateClaim(c *models.PendingClaim) error {
	if err := m.fail("CreateClaim"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.claims {
		if existing.UserID == c.UserID && c.BookingRef != "" &&
			existing.BookingRef == c.BookingRef && existing.Status == types.CLAIM_PENDING {
			return gorm.ErrDuplicatedKey
		}
	}
	c.ID = m.id()
	cp := *c
	m.claims[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateClaimStatus(id uint, from, to types.ClaimStatus) error {
	if err := m.fail("UpdateClaimStatus"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[id]; ok && c.Status == from {
		c.Status = to
	}
	return nil
}

func (m *memStore) SweepExpiredClaims(now time.Time) (int64, error) {
	if err := m.fail("SweepExpiredClaims"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, c := range m.claims {
		if c.Status == types.CLAIM_PENDING && c.ExpiresAt.Before(now) {
			c.Status = types.CLAIM_EXPIRED
			count++
		}
	}
	return count, nil
}

func (m *memStore) VerifyClaim(claimID, passID uint, transferTo *uint, at time.Time) error {
	if err := m.fail("VerifyClaim"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if transferTo != nil {
		pass, ok := m.passes[passID]
		if !ok {
			return ErrNotFound
		}
		pass.UserID = *transferTo
	}
	if c, ok := m.claims[claimID]; ok && c.Status == types.CLAIM_PENDING {
		c.Status = types.CLAIM_VERIFIED
		c.VerifiedAt = &at
		c.PassID = &passID
	}
	return nil
}

func (m *memStore) ApplyUpgrade(passID uint, toTier, paymentRef string) (*models.Pass, *models.UpgradeRecord, error) {
	if err := m.fail("ApplyUpgrade"); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pass, ok := m.passes[passID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	rec, err := newUpgradeRecord(pass, toTier, paymentRef)
	if err != nil {
		return nil, nil, err
	}
	pass.Tier = rec.ToTier
	pass.Price = rec.NewPrice
	m.records = append(m.records, rec)
	if txn, ok := m.txns[paymentRef]; ok && txn.Kind == types.TXN_UPGRADE {
		txn.Status = types.TRANSACTION_COMPLETED
		txn.PassID = &pass.ID
	}
	cp := *pass
	return &cp, rec, nil
}

func (m *memStore) FindUpgradeRecordByPaymentRef(ref string) (*models.UpgradeRecord, error) {
	if err := m.fail("FindUpgradeRecordByPaymentRef"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.PaymentRef == ref && ref != "" {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) CompleteOrder(referenceID string, p *models.Pass) (*models.Pass, bool, error) {
	if err := m.fail("CompleteOrder"); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, found := m.txns[referenceID]
	if found && txn.Status == types.TRANSACTION_COMPLETED {
		if txn.PassID != nil {
			if existing, ok := m.passes[*txn.PassID]; ok {
				cp := *existing
				return &cp, false, nil
			}
		}
		return nil, false, nil
	}
	for _, existing := range m.passes {
		if existing.UserID == p.UserID && existing.Status == types.PASS_ACTIVE {
			return nil, false, ErrAlreadyHasPass
		}
	}
	p.ID = m.id()
	p.Status = types.PASS_ACTIVE
	cp := *p
	m.passes[p.ID] = &cp
	if !found {
		txn = &models.Transaction{
			ReferenceID: referenceID,
			Kind:        types.TXN_PURCHASE,
			UserID:      p.UserID,
			Amount:      p.Price,
		}
		m.txns[referenceID] = txn
	}
	txn.Status = types.TRANSACTION_COMPLETED
	txn.PassID = &p.ID
	return p, true, nil
}

func (m *memStore) CreateTransaction(t *models.Transaction) error {
	if err := m.fail("CreateTransaction"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txns[t.ReferenceID] = &cp
	return nil
}

func (m *memStore) FindTransactionByReference(ref string) (*models.Transaction, error) {
	if err := m.fail("FindTransactionByReference"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[ref]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) UpdateTransactionStatus(ref string, to types.TransactionStatus) error {
	if err := m.fail("UpdateTransactionStatus"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[ref]; ok {
		t.Status = to
	}
	return nil
}
