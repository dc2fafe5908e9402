package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicenseExpiredOn(t *testing.T) {
	lic := License{ValidUntil: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}

	assert.False(t, lic.ExpiredOn(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)))
	assert.False(t, lic.ExpiredOn(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)), "valid through end of last day")
	assert.True(t, lic.ExpiredOn(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestLicenseDaysRemaining(t *testing.T) {
	lic := License{ValidUntil: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, 0, lic.DaysRemaining(time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, lic.DaysRemaining(time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)))

	// late evening west of UTC is already the next UTC day
	loc := time.FixedZone("UTC-5", -5*3600)
	assert.Equal(t, 0, lic.DaysRemaining(time.Date(2026, 3, 9, 22, 0, 0, 0, loc)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2027-01-31 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("31/01/2027")
	assert.Error(t, err)
}

func TestIdentityFieldValid(t *testing.T) {
	assert.True(t, FieldGymName.Valid())
	assert.True(t, FieldAdditionalInfo.Valid())
	assert.False(t, IdentityField("hardware_id").Valid())
}

func TestAdminUserPasswordHashing(t *testing.T) {
	u := AdminUser{Username: "admin", Password: "s3cret"}
	require.NoError(t, u.BeforeSave(nil))
	assert.NotEqual(t, "s3cret", u.Password)
	assert.True(t, u.CheckPassword("s3cret"))

	hashed := u.Password
	require.NoError(t, u.BeforeSave(nil))
	assert.Equal(t, hashed, u.Password, "already hashed password is kept")
	assert.False(t, u.CheckPassword("wrong"))
}
