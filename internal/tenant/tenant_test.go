package tenant

import (
	"context"
	"strconv"
	"testing"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/otp"
	"dineflow/internal/otp/otptest"
	"dineflow/internal/qr"
	"dineflow/internal/store"
	"dineflow/internal/store/storetest"
	"dineflow/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidations struct{ slugs []string }

func (i *invalidations) InvalidateMenu(ctx context.Context, slug string) {
	i.slugs = append(i.slugs, slug)
}

func newService(t *testing.T) (*Service, *otptest.Recorder, *invalidations) {
	db := storetest.New(t)
	log := logger.Discard()
	rec := &otptest.Recorder{}
	inv := &invalidations{}
	s := &Service{
		DB:       db,
		OTP:      otp.NewService(db, log),
		Notifier: rec,
		Tables:   table.NewService(db, qr.NewGenerator("secret", "https://menu.example.com", 256), log),
		Menu:     inv,
		EmailTTL: 15 * time.Minute,
		Logger:   log,
	}
	return s, rec, inv
}

func register(t *testing.T, s *Service, name, email string) *RegisterResult {
	t.Helper()
	res, err := s.Register(context.Background(), RegisterInput{
		RestaurantName: name,
		OwnerName:      "Sam Owner",
		Email:          email,
		Password:       "supersecret",
	})
	require.NoError(t, err)
	return res
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Joe's Diner":          "joes-diner",
		"  The  Spice -- Hub ": "the-spice-hub",
		"Café 42":              "cafe-42",
		"Crème Brûlée Bar":     "creme-brulee-bar",
		"Smørrebrød":           "smørrebrød",
		"!!!":                  "restaurant",
		"Ann’s Place":          "anns-place",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestRegisterCreatesInactiveTenantAndOwner(t *testing.T) {
	s, rec, _ := newService(t)
	ctx := context.Background()

	res := register(t, s, "Joe's Diner", "Owner@Example.com")

	assert.Equal(t, "joes-diner", res.Tenant.Slug)
	assert.False(t, res.Tenant.IsActive)
	assert.False(t, res.Tenant.IsVerified)
	assert.Equal(t, "USD", res.Tenant.Currency)
	assert.Equal(t, models.RoleOwner, res.Staff.Role)
	assert.Equal(t, "owner@example.com", res.Staff.Email)
	assert.NotEqual(t, "supersecret", res.Staff.PasswordHash)

	brand, err := s.DB.GetBrand(ctx, res.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Joe's Diner", brand.WelcomeTitle)

	assert.Len(t, rec.LastCode("owner@example.com"), otp.CodeLength)
}

func TestRegisterSlugCollisionGetsSuffix(t *testing.T) {
	s, _, _ := newService(t)

	first := register(t, s, "Joe's Diner", "a@example.com")
	second := register(t, s, "Joes Diner", "b@example.com")
	third := register(t, s, "joes diner", "c@example.com")

	assert.Equal(t, "joes-diner", first.Tenant.Slug)
	assert.Equal(t, "joes-diner-1", second.Tenant.Slug)
	assert.Equal(t, "joes-diner-2", third.Tenant.Slug)
}

func TestRegisterValidation(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{RestaurantName: "X", Email: "x@example.com", Password: "short"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = s.Register(ctx, RegisterInput{RestaurantName: "X", Password: "longenough"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	register(t, s, "First", "dup@example.com")
	_, err = s.Register(ctx, RegisterInput{RestaurantName: "Second", Email: "DUP@example.com", Password: "longenough"})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	tenants, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func TestVerifyRegistration(t *testing.T) {
	s, rec, _ := newService(t)
	ctx := context.Background()
	register(t, s, "Verify Me", "v@example.com")

	_, err := s.VerifyRegistration(ctx, "v@example.com", "000000x")
	assert.ErrorIs(t, err, otp.ErrInvalidOrExpired)

	tenant, err := s.VerifyRegistration(ctx, "v@example.com", rec.LastCode("v@example.com"))
	require.NoError(t, err)
	assert.True(t, tenant.IsVerified)

	err = s.ResendVerification(ctx, "v@example.com")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestResendVerificationIssuesNewCode(t *testing.T) {
	s, rec, _ := newService(t)
	ctx := context.Background()
	register(t, s, "Resend", "r@example.com")

	require.NoError(t, s.ResendVerification(ctx, "r@example.com"))
	assert.Len(t, rec.Messages(), 2)

	_, err := s.VerifyRegistration(ctx, "r@example.com", rec.LastCode("r@example.com"))
	assert.NoError(t, err)

	assert.True(t, apperr.Is(s.ResendVerification(ctx, "nobody@example.com"), apperr.NotFound))
}

func onboard(t *testing.T, s *Service, rec *otptest.Recorder, email string) *models.Tenant {
	t.Helper()
	res := register(t, s, "Onboard "+email, email)
	_, err := s.VerifyRegistration(context.Background(), email, rec.LastCode(email))
	require.NoError(t, err)
	return res.Tenant
}

func TestCompleteOnboarding(t *testing.T) {
	s, rec, inv := newService(t)
	ctx := context.Background()
	tenant := onboard(t, s, rec, "o@example.com")

	color := "#000000"
	inclusive := false
	res, err := s.CompleteOnboarding(ctx, tenant.ID, OnboardingInput{
		Brand:        &BrandInput{PrimaryColor: &color},
		Currency:     "eur",
		TaxInclusive: &inclusive,
		Taxes:        []TaxInput{{Name: "VAT", Rate: 20}},
		Tables:       &table.GenerateInput{Count: 10, Prefix: "T"},
	})
	require.NoError(t, err)

	assert.True(t, res.Tenant.IsActive)
	assert.True(t, res.Tenant.OnboardingCompleted)
	assert.Equal(t, "EUR", res.Tenant.Currency)
	assert.Len(t, res.Tables, 10)
	assert.Equal(t, []string{tenant.Slug}, inv.slugs)

	tables, err := s.DB.ListTables(ctx, tenant.ID, false)
	require.NoError(t, err)
	require.Len(t, tables, 10)
	for i, tb := range tables {
		assert.Equal(t, i+1, tb.Number)
		assert.Equal(t, "T "+strconv.Itoa(i+1), tb.Name)
	}

	settings, err := s.Settings(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "#000000", settings.Brand.PrimaryColor)
	require.Len(t, settings.Taxes, 1)
	assert.Equal(t, 20.0, settings.Taxes[0].Rate)
}

func TestCompleteOnboardingRequiresVerification(t *testing.T) {
	s, _, _ := newService(t)
	res := register(t, s, "Unverified", "u@example.com")

	_, err := s.CompleteOnboarding(context.Background(), res.Tenant.ID, OnboardingInput{})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestCompleteOnboardingRejectsOversizedTableCount(t *testing.T) {
	s, rec, _ := newService(t)
	ctx := context.Background()
	tenant := onboard(t, s, rec, "rb@example.com")

	_, err := s.CompleteOnboarding(ctx, tenant.ID, OnboardingInput{
		Taxes:  []TaxInput{{Name: "GST", Rate: 5}},
		Tables: &table.GenerateInput{Count: table.MaxGenerate + 1},
	})
	require.Error(t, err)

	taxes, err := s.DB.ListTaxSettings(ctx, tenant.ID, false)
	require.NoError(t, err)
	assert.Empty(t, taxes)

	got, err := s.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUpdateSettings(t *testing.T) {
	s, rec, inv := newService(t)
	ctx := context.Background()
	tenant := onboard(t, s, rec, "set@example.com")

	name := "Renamed"
	title := "Hello"
	out, err := s.UpdateSettings(ctx, tenant.ID, SettingsInput{
		Name:  &name,
		Brand: &BrandInput{WelcomeTitle: &title},
		Taxes: []TaxInput{{Name: "A", Rate: 5}, {Name: "B", Rate: 2.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", out.Tenant.Name)
	assert.Equal(t, tenant.Slug, out.Tenant.Slug)
	assert.Equal(t, "Hello", out.Brand.WelcomeTitle)
	assert.Len(t, out.Taxes, 2)
	assert.Contains(t, inv.slugs, tenant.Slug)

	empty := " "
	_, err = s.UpdateSettings(ctx, tenant.ID, SettingsInput{Name: &empty})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSetActiveAndDelete(t *testing.T) {
	s, rec, _ := newService(t)
	ctx := context.Background()
	tenant := onboard(t, s, rec, "del@example.com")

	got, err := s.SetActive(ctx, tenant.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.NoError(t, s.Delete(ctx, tenant.ID))
	_, err = s.Get(ctx, tenant.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = s.DB.GetStaffByEmail(ctx, "del@example.com")
	assert.True(t, store.IsNotFound(err))
}
