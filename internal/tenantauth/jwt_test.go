package tenantauth

import (
	"testing"
	"time"

	"github.com/attendly/attendance-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:       "test-secret-do-not-use-in-prod",
		AccessExpiry: time.Hour,
		Issuer:       "attendance-core-test",
	}
}

func TestTokenManager_IssueAndValidateAdminToken(t *testing.T) {
	m := NewTokenManager(testJWTConfig())

	token, expiry, err := m.IssueAdminToken("admin-1", "company-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 2*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, string(SubjectAdmin), claims.SubjectKind)
	assert.Equal(t, "admin-1", claims.SubjectID)
	assert.Equal(t, "company-1", claims.CompanyID)
	assert.Empty(t, claims.DeviceID)
}

func TestTokenManager_IssueAndValidateEmployeeToken(t *testing.T) {
	m := NewTokenManager(testJWTConfig())

	token, _, err := m.IssueEmployeeToken("employee-1", "company-1", "device-abc")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, string(SubjectEmployee), claims.SubjectKind)
	assert.Equal(t, "employee-1", claims.SubjectID)
	assert.Equal(t, "device-abc", claims.DeviceID)
}

func TestTokenManager_Validate_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager(testJWTConfig())
	token, _, err := issuer.IssueAdminToken("admin-1", "company-1")
	require.NoError(t, err)

	wrongSecretCfg := testJWTConfig()
	wrongSecretCfg.Secret = "a-completely-different-secret"
	verifier := NewTokenManager(wrongSecretCfg)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestTokenManager_Validate_RejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessExpiry = -time.Minute // already expired at issuance
	m := NewTokenManager(cfg)

	token, _, err := m.IssueAdminToken("admin-1", "company-1")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestTokenManager_Validate_RejectsGarbageToken(t *testing.T) {
	m := NewTokenManager(testJWTConfig())
	_, err := m.Validate("not-a-jwt-at-all")
	assert.Error(t, err)
}
