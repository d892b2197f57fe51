package tenantauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/attendly/attendance-core/pkg/config"
	"github.com/attendly/attendance-core/pkg/errors"
)

// Claims carries the principal fields needed to reconstruct a Principal
// without a storage round-trip for the common case. The gatekeeper still
// re-validates the employee/device binding against the session store for
// SubjectEmployee tokens (see Gatekeeper.Authorize).
type Claims struct {
	jwt.RegisteredClaims
	SubjectKind string `json:"subject_kind"`
	SubjectID   string `json:"subject_id"`
	CompanyID   string `json:"company_id"`
	DeviceID    string `json:"device_id,omitempty"`
}

// TokenManager issues and validates bearer tokens for both admin and
// employee principals.
type TokenManager struct {
	config *config.JWTConfig
}

// NewTokenManager creates a token manager from JWT configuration.
func NewTokenManager(cfg *config.JWTConfig) *TokenManager {
	return &TokenManager{config: cfg}
}

// IssueAdminToken issues a bearer token for an admin principal.
func (m *TokenManager) IssueAdminToken(adminID, companyID string) (string, time.Time, error) {
	return m.issue(SubjectAdmin, adminID, companyID, "")
}

// IssueEmployeeToken issues a session token bound to (employee_id, device_id),
// as produced by the OTP/device-activation flow the gatekeeper consumes.
func (m *TokenManager) IssueEmployeeToken(employeeID, companyID, deviceID string) (string, time.Time, error) {
	return m.issue(SubjectEmployee, employeeID, companyID, deviceID)
}

func (m *TokenManager) issue(kind SubjectKind, subjectID, companyID, deviceID string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(m.config.AccessExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		SubjectKind: string(kind),
		SubjectID:   subjectID,
		CompanyID:   companyID,
		DeviceID:    deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiry, nil
}

// Validate parses and verifies a bearer token, returning its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if err.Error() == "token has invalid claims: token is expired" {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}
