//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/adapter"
	"cardkey-service/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- fingerprint ----

type plainCodec struct{}

func (plainCodec) Fingerprint(k string) string { return "fp:" + k }

// ---- tx manager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// ---- in-memory card store with compare-and-set semantics ----

type memCardRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.Card
	byFP  map[string]string
	calls map[string]int

	// beforeWrite, when set, runs once per mutation under no lock so a test
	// can inject a concurrent change between read and write.
	beforeWrite func(op string)
	findErr     error
}

func newMemCardRepo() *memCardRepo {
	return &memCardRepo{byID: map[string]*model.Card{}, byFP: map[string]string{}, calls: map[string]int{}}
}

func (r *memCardRepo) put(c *model.Card) *model.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.byID[c.ID] = &cp
	r.byFP[c.Fingerprint] = c.ID
	return c
}

func (r *memCardRepo) get(id string) *model.Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.byID[id]
	return &cp
}

func (r *memCardRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *memCardRepo) hook(op string) {
	r.mu.Lock()
	r.calls[op]++
	h := r.beforeWrite
	r.mu.Unlock()
	if h != nil {
		h(op)
	}
}

func (r *memCardRepo) mutate(id string, guard func(c *model.Card) bool, apply func(c *model.Card)) (*model.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || !guard(c) {
		return nil, domain.ErrConflict
	}
	apply(c)
	cp := *c
	return &cp, nil
}

func (r *memCardRepo) FindByFingerprint(ctx context.Context, tx repository.Tx, fp string) (*model.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byFP[fp]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *memCardRepo) ActivateTime(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedDuration int, expireTime *time.Time) (*model.Card, error) {
	r.hook("activate_time")
	return r.mutate(id,
		func(c *model.Card) bool {
			return c.Status == model.CardStatusUnused && c.Type == model.CardTypeTime && c.DurationDays == expectedDuration
		},
		func(c *model.Card) {
			c.Status = model.CardStatusUsed
			c.DeviceID = deviceID
			c.VerifyMethod = method
			c.UseTime = &useTime
			c.ExpireTime = expireTime
		})
}

func (r *memCardRepo) ActivateCount(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedTotal int) (*model.Card, error) {
	r.hook("activate_count")
	return r.mutate(id,
		func(c *model.Card) bool {
			return c.Status == model.CardStatusUnused && c.Type == model.CardTypeCount &&
				c.TotalCount == expectedTotal && c.RemainingCount == c.TotalCount
		},
		func(c *model.Card) {
			c.Status = model.CardStatusUsed
			c.DeviceID = deviceID
			c.VerifyMethod = method
			c.UseTime = &useTime
			c.RemainingCount = c.TotalCount - 1
		})
}

func (r *memCardRepo) ReverifyCountDecrement(ctx context.Context, tx repository.Tx, id, deviceID string, expected, newRemaining int) (*model.Card, error) {
	r.hook("reverify_count")
	return r.mutate(id,
		func(c *model.Card) bool {
			return c.Status == model.CardStatusUsed && c.DeviceID == deviceID && c.RemainingCount == expected && c.RemainingCount > 0
		},
		func(c *model.Card) { c.RemainingCount = newRemaining })
}

func (r *memCardRepo) RebindDevice(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod) (*model.Card, error) {
	r.hook("rebind")
	return r.mutate(id,
		func(c *model.Card) bool { return c.Status == model.CardStatusUsed && c.DeviceID == "" },
		func(c *model.Card) {
			c.DeviceID = deviceID
			c.VerifyMethod = method
		})
}

// ---- admin surface on the same store ----

func (r *memCardRepo) CreateBatch(ctx context.Context, tx repository.Tx, cards []*model.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cards {
		if _, ok := r.byFP[c.Fingerprint]; ok {
			return domain.ErrAlreadyExists
		}
	}
	for _, c := range cards {
		cp := *c
		r.byID[c.ID] = &cp
		r.byFP[c.Fingerprint] = c.ID
	}
	return nil
}

func (r *memCardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCardRepo) filter(f model.CardFilter) []*model.Card {
	var out []*model.Card
	for _, c := range r.byID {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(c.PlainKey, f.Search) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime.After(out[j].CreateTime) })
	return out
}

func (r *memCardRepo) List(ctx context.Context, tx repository.Tx, f model.CardFilter) ([]*model.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(f)
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memCardRepo) Count(ctx context.Context, tx repository.Tx, f model.CardFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.filter(f))), nil
}

func (r *memCardRepo) ExistingKeys(ctx context.Context, tx repository.Tx, keys []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, c := range r.byID {
		for _, k := range keys {
			if c.PlainKey == k {
				out[k] = true
			}
		}
	}
	return out, nil
}

func (r *memCardRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrCardNotFound
	}
	delete(r.byFP, c.Fingerprint)
	delete(r.byID, id)
	return nil
}

func (r *memCardRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if r.Delete(ctx, tx, id) == nil {
			n++
		}
	}
	return n, nil
}

func (r *memCardRepo) Disable(ctx context.Context, tx repository.Tx, id string) error {
	_, err := r.mutate(id,
		func(c *model.Card) bool { return c.Status != model.CardStatusDisabled },
		func(c *model.Card) { c.Status = model.CardStatusDisabled })
	return err
}

func (r *memCardRepo) Enable(ctx context.Context, tx repository.Tx, id string) error {
	_, err := r.mutate(id,
		func(c *model.Card) bool { return c.Status == model.CardStatusDisabled },
		func(c *model.Card) {
			c.Status = model.CardStatusUsed
			if c.UseTime == nil {
				c.Status = model.CardStatusUnused
			}
		})
	return err
}

func (r *memCardRepo) Extend(ctx context.Context, tx repository.Tx, id string, days int, now time.Time) (*model.Card, error) {
	return r.mutate(id,
		func(c *model.Card) bool { return c.Type == model.CardTypeTime },
		func(c *model.Card) {
			base := now
			if c.ExpireTime != nil {
				base = *c.ExpireTime
			}
			e := base.AddDate(0, 0, days)
			c.ExpireTime = &e
			c.DurationDays += days
		})
}

func (r *memCardRepo) AddCount(ctx context.Context, tx repository.Tx, id string, n int) (*model.Card, error) {
	return r.mutate(id,
		func(c *model.Card) bool { return c.Type == model.CardTypeCount },
		func(c *model.Card) {
			c.TotalCount += n
			c.RemainingCount += n
		})
}

func (r *memCardRepo) Unbind(ctx context.Context, tx repository.Tx, id string) error {
	_, err := r.mutate(id,
		func(c *model.Card) bool { return c.DeviceID != "" },
		func(c *model.Card) { c.DeviceID = "" })
	return err
}

func (r *memCardRepo) UpdateDevice(ctx context.Context, tx repository.Tx, id, deviceID string) error {
	_, err := r.mutate(id,
		func(c *model.Card) bool { return true },
		func(c *model.Card) { c.DeviceID = deviceID })
	return err
}

func (r *memCardRepo) CountByStatus(ctx context.Context, tx repository.Tx) (model.CardCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out model.CardCounts
	for _, c := range r.byID {
		out.Total++
		switch c.Status {
		case model.CardStatusUsed:
			out.Used++
		case model.CardStatusUnused:
			out.Unused++
		case model.CardStatusDisabled:
			out.Disabled++
		}
	}
	return out, nil
}

func (r *memCardRepo) CountRecent(ctx context.Context, tx repository.Tx, since time.Time) (model.RecentCardCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out model.RecentCardCounts
	for _, c := range r.byID {
		if c.CreateTime.Before(since) {
			continue
		}
		out.NewCards++
		if c.UseTime != nil && !c.UseTime.Before(since) {
			out.RecentUsed++
		}
	}
	return out, nil
}

func (r *memCardRepo) DailyTrend(ctx context.Context, tx repository.Tx, from time.Time, days int) ([]model.DailyCardCount, error) {
	out := make([]model.DailyCardCount, days)
	for i := range out {
		out[i].Date = from.AddDate(0, 0, i)
	}
	return out, nil
}

var (
	_ repository.CardRepository      = (*memCardRepo)(nil)
	_ repository.CardAdminRepository = (*memCardRepo)(nil)
)

// ---- events ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []adapter.VerificationEvent
	err    error
}

func (p *recordingPublisher) PublishVerification(ctx context.Context, ev adapter.VerificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// ---- api keys ----

type MockAPIKeyRepo struct {
	CreateFunc       func(ctx context.Context, tx repository.Tx, k *model.APIKey) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.APIKey, error)
	FindByKeyFunc    func(ctx context.Context, tx repository.Tx, key string) (*model.APIKey, error)
	ExistsByNameFunc func(ctx context.Context, tx repository.Tx, name string) (bool, error)
	ListFunc         func(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) ([]*model.APIKey, error)
	CountFunc        func(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) (int64, error)
	SetStatusFunc    func(ctx context.Context, tx repository.Tx, id string, status model.APIKeyStatus) error
	DeleteFunc       func(ctx context.Context, tx repository.Tx, id string) error
	RotateFunc       func(ctx context.Context, tx repository.Tx, id, newKey string) error
	RecordUseFunc    func(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error)
	StatsFunc        func(ctx context.Context, tx repository.Tx, since time.Time) (model.APIKeyCounts, error)
}

func (m *MockAPIKeyRepo) Create(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, k)
	}
	return nil
}

func (m *MockAPIKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.APIKey, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (m *MockAPIKeyRepo) FindByKey(ctx context.Context, tx repository.Tx, key string) (*model.APIKey, error) {
	if m.FindByKeyFunc != nil {
		return m.FindByKeyFunc(ctx, tx, key)
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (m *MockAPIKeyRepo) ExistsByName(ctx context.Context, tx repository.Tx, name string) (bool, error) {
	if m.ExistsByNameFunc != nil {
		return m.ExistsByNameFunc(ctx, tx, name)
	}
	return false, nil
}

func (m *MockAPIKeyRepo) List(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) ([]*model.APIKey, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tx, f)
	}
	return nil, nil
}

func (m *MockAPIKeyRepo) Count(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, tx, f)
	}
	return 0, nil
}

func (m *MockAPIKeyRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.APIKeyStatus) error {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, tx, id, status)
	}
	return nil
}

func (m *MockAPIKeyRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	return nil
}

func (m *MockAPIKeyRepo) Rotate(ctx context.Context, tx repository.Tx, id, newKey string) error {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, tx, id, newKey)
	}
	return nil
}

func (m *MockAPIKeyRepo) RecordUse(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error) {
	if m.RecordUseFunc != nil {
		return m.RecordUseFunc(ctx, tx, id, at)
	}
	return 1, nil
}

func (m *MockAPIKeyRepo) Stats(ctx context.Context, tx repository.Tx, since time.Time) (model.APIKeyCounts, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, tx, since)
	}
	return model.APIKeyCounts{}, nil
}

// ---- settings ----

type memSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettingRepo(seed map[string]string) *memSettingRepo {
	r := &memSettingRepo{values: map[string]string{}}
	for k, v := range seed {
		r.values[k] = v
	}
	return r
}

func (r *memSettingRepo) Get(ctx context.Context, tx repository.Tx, name string) (*model.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[name]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &model.Setting{Name: name, Value: v}, nil
}

func (r *memSettingRepo) All(ctx context.Context, tx repository.Tx) ([]*model.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Setting, 0, len(r.values))
	for k, v := range r.values {
		out = append(out, &model.Setting{Name: k, Value: v})
	}
	return out, nil
}

func (r *memSettingRepo) Upsert(ctx context.Context, tx repository.Tx, name, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[name] = value
	return nil
}

func (r *memSettingRepo) InsertMissing(ctx context.Context, tx repository.Tx, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		if _, ok := r.values[k]; !ok {
			r.values[k] = v
		}
	}
	return nil
}

func (r *memSettingRepo) Delete(ctx context.Context, tx repository.Tx, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[name]; !ok {
		return domain.ErrSettingNotFound
	}
	delete(r.values, name)
	return nil
}

// ---- admins ----

type memAdminRepo struct {
	mu     sync.Mutex
	byName map[string]*model.Admin
}

func newMemAdminRepo() *memAdminRepo { return &memAdminRepo{byName: map[string]*model.Admin{}} }

func (r *memAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[a.Username]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *a
	r.byName[a.Username] = &cp
	return nil
}

func (r *memAdminRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAdminRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byName {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAdminRepo) UpdatePassword(ctx context.Context, tx repository.Tx, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byName {
		if a.ID == id {
			a.PasswordHash = hash
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memAdminRepo) TouchLogin(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byName {
		if a.ID == id {
			a.LastLogin = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memAdminRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName), nil
}
