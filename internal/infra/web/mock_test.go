//go:build !integration

package web

import (
	"context"

	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/usecase"
)

// --- Mock use cases (function fields; unset fields panic on purpose) ---

type MockAuthUC struct {
	LoginFunc          func(ctx context.Context, username, password string) (*model.Admin, error)
	ChangePasswordFunc func(ctx context.Context, adminID, oldPassword, newPassword string) error
}

func (m *MockAuthUC) Login(ctx context.Context, username, password string) (*model.Admin, error) {
	return m.LoginFunc(ctx, username, password)
}
func (m *MockAuthUC) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	return m.ChangePasswordFunc(ctx, adminID, oldPassword, newPassword)
}
func (m *MockAuthUC) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	return false, nil
}

type MockCardUC struct {
	GenerateFunc     func(ctx context.Context, req usecase.GenerateRequest) ([]*model.Card, error)
	ListFunc         func(ctx context.Context, f model.CardFilter, page, limit int) (*usecase.CardPage, error)
	ExportFunc       func(ctx context.Context, f model.CardFilter) ([]*model.Card, error)
	GetFunc          func(ctx context.Context, id string) (*model.Card, error)
	DeleteFunc       func(ctx context.Context, id string) error
	DeleteManyFunc   func(ctx context.Context, ids []string) (int64, error)
	DisableFunc      func(ctx context.Context, id string) error
	EnableFunc       func(ctx context.Context, id string) error
	ExtendFunc       func(ctx context.Context, id string, days int) (*model.Card, error)
	AddCountFunc     func(ctx context.Context, id string, n int) (*model.Card, error)
	UnbindFunc       func(ctx context.Context, id string) error
	UpdateDeviceFunc func(ctx context.Context, id, deviceID string) error
}

func (m *MockCardUC) Generate(ctx context.Context, req usecase.GenerateRequest) ([]*model.Card, error) {
	return m.GenerateFunc(ctx, req)
}
func (m *MockCardUC) List(ctx context.Context, f model.CardFilter, page, limit int) (*usecase.CardPage, error) {
	return m.ListFunc(ctx, f, page, limit)
}
func (m *MockCardUC) Export(ctx context.Context, f model.CardFilter) ([]*model.Card, error) {
	return m.ExportFunc(ctx, f)
}
func (m *MockCardUC) Get(ctx context.Context, id string) (*model.Card, error) {
	return m.GetFunc(ctx, id)
}
func (m *MockCardUC) Delete(ctx context.Context, id string) error { return m.DeleteFunc(ctx, id) }
func (m *MockCardUC) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	return m.DeleteManyFunc(ctx, ids)
}
func (m *MockCardUC) Disable(ctx context.Context, id string) error { return m.DisableFunc(ctx, id) }
func (m *MockCardUC) Enable(ctx context.Context, id string) error  { return m.EnableFunc(ctx, id) }
func (m *MockCardUC) Extend(ctx context.Context, id string, days int) (*model.Card, error) {
	return m.ExtendFunc(ctx, id, days)
}
func (m *MockCardUC) AddCount(ctx context.Context, id string, n int) (*model.Card, error) {
	return m.AddCountFunc(ctx, id, n)
}
func (m *MockCardUC) Unbind(ctx context.Context, id string) error { return m.UnbindFunc(ctx, id) }
func (m *MockCardUC) UpdateDevice(ctx context.Context, id, deviceID string) error {
	return m.UpdateDeviceFunc(ctx, id, deviceID)
}

type MockAPIKeyUC struct {
	ListFunc         func(ctx context.Context, f model.APIKeyFilter, page, limit int) (*usecase.APIKeyPage, error)
	CreateFunc       func(ctx context.Context, name, description string) (*model.APIKey, error)
	SetStatusFunc    func(ctx context.Context, id string, status model.APIKeyStatus) error
	DeleteFunc       func(ctx context.Context, id string) error
	RotateFunc       func(ctx context.Context, id string) (*model.APIKey, error)
	StatsFunc        func(ctx context.Context) (model.APIKeyCounts, error)
	AuthenticateFunc func(ctx context.Context, key string) (*model.APIKey, error)
}

func (m *MockAPIKeyUC) List(ctx context.Context, f model.APIKeyFilter, page, limit int) (*usecase.APIKeyPage, error) {
	return m.ListFunc(ctx, f, page, limit)
}
func (m *MockAPIKeyUC) Create(ctx context.Context, name, description string) (*model.APIKey, error) {
	return m.CreateFunc(ctx, name, description)
}
func (m *MockAPIKeyUC) SetStatus(ctx context.Context, id string, status model.APIKeyStatus) error {
	return m.SetStatusFunc(ctx, id, status)
}
func (m *MockAPIKeyUC) Delete(ctx context.Context, id string) error { return m.DeleteFunc(ctx, id) }
func (m *MockAPIKeyUC) Rotate(ctx context.Context, id string) (*model.APIKey, error) {
	return m.RotateFunc(ctx, id)
}
func (m *MockAPIKeyUC) Stats(ctx context.Context) (model.APIKeyCounts, error) {
	return m.StatsFunc(ctx)
}
func (m *MockAPIKeyUC) Authenticate(ctx context.Context, key string) (*model.APIKey, error) {
	return m.AuthenticateFunc(ctx, key)
}

type MockSettingUC struct {
	AllFunc     func(ctx context.Context) (map[string]string, error)
	GetFunc     func(ctx context.Context, name string) (*model.Setting, error)
	SetFunc     func(ctx context.Context, name, value string) error
	SetManyFunc func(ctx context.Context, values map[string]string) error
	DeleteFunc  func(ctx context.Context, name string) error
}

func (m *MockSettingUC) All(ctx context.Context) (map[string]string, error) { return m.AllFunc(ctx) }
func (m *MockSettingUC) Get(ctx context.Context, name string) (*model.Setting, error) {
	return m.GetFunc(ctx, name)
}
func (m *MockSettingUC) Set(ctx context.Context, name, value string) error {
	return m.SetFunc(ctx, name, value)
}
func (m *MockSettingUC) SetMany(ctx context.Context, values map[string]string) error {
	return m.SetManyFunc(ctx, values)
}
func (m *MockSettingUC) Delete(ctx context.Context, name string) error { return m.DeleteFunc(ctx, name) }
func (m *MockSettingUC) APIEnabled(ctx context.Context) (bool, error)  { return true, nil }
func (m *MockSettingUC) SeedDefaults(ctx context.Context) error        { return nil }

type MockStatsUC struct {
	OverviewFunc   func(ctx context.Context) (*usecase.Overview, error)
	TrendsFunc     func(ctx context.Context, days int) ([]model.DailyCardCount, error)
	CardCountsFunc func(ctx context.Context) (model.CardCounts, error)
}

func (m *MockStatsUC) Overview(ctx context.Context) (*usecase.Overview, error) {
	return m.OverviewFunc(ctx)
}
func (m *MockStatsUC) Trends(ctx context.Context, days int) ([]model.DailyCardCount, error) {
	return m.TrendsFunc(ctx, days)
}
func (m *MockStatsUC) CardCounts(ctx context.Context) (model.CardCounts, error) {
	return m.CardCountsFunc(ctx)
}
