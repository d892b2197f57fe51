package tenantauth

import (
	"context"
	"strings"

	"github.com/attendly/attendance-core/pkg/errors"
)

// Credentials is the union of the two credential shapes the gatekeeper
// accepts: an admin bearer token, or an employee session token bound to a
// device. Exactly one of AdminToken / EmployeeToken should be set.
type Credentials struct {
	AdminToken    string
	EmployeeToken string
	DeviceID      string // required alongside EmployeeToken
}

// CredentialsFromAuthHeader extracts a bearer token from a standard
// "Authorization: Bearer <token>" header. The caller decides, via the
// X-Device-Id header or similar, whether it is an admin or employee flow;
// here we just strip the scheme.
func CredentialsFromAuthHeader(header, deviceID string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.Unauthenticated("missing or malformed authorization header")
	}
	return strings.TrimPrefix(header, prefix), nil
}

// Gatekeeper implements C1: it resolves credentials to a Principal from
// authoritative storage, never from request-body fields.
type Gatekeeper struct {
	tokens   *TokenManager
	sessions *DeviceSessionRepository
}

// NewGatekeeper creates a Gatekeeper.
func NewGatekeeper(tokens *TokenManager, sessions *DeviceSessionRepository) *Gatekeeper {
	return &Gatekeeper{tokens: tokens, sessions: sessions}
}

// Authorize resolves credentials into a Principal.
//
// Admin tokens are trusted as-is once signature/expiry validate: the token
// issuer (external admin-auth collaborator) is authoritative for admin
// identity and company binding.
//
// Employee tokens additionally re-read the device session row on every
// call: a token whose claims look valid but whose device binding has been
// revoked (device deactivated, employee offboarded) must not authorize.
func (g *Gatekeeper) Authorize(ctx context.Context, creds Credentials) (Principal, error) {
	switch {
	case creds.AdminToken != "":
		return g.authorizeAdmin(creds.AdminToken)
	case creds.EmployeeToken != "":
		return g.authorizeEmployee(ctx, creds.EmployeeToken, creds.DeviceID)
	default:
		return Principal{}, errors.Unauthenticated("no credentials presented")
	}
}

func (g *Gatekeeper) authorizeAdmin(token string) (Principal, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return Principal{}, err
	}
	if claims.SubjectKind != string(SubjectAdmin) {
		return Principal{}, errors.Unauthenticated("token is not an admin token")
	}
	return Principal{
		SubjectKind: SubjectAdmin,
		SubjectID:   claims.SubjectID,
		CompanyID:   claims.CompanyID,
	}, nil
}

func (g *Gatekeeper) authorizeEmployee(ctx context.Context, token, deviceID string) (Principal, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return Principal{}, err
	}
	if claims.SubjectKind != string(SubjectEmployee) {
		return Principal{}, errors.Unauthenticated("token is not an employee token")
	}
	if deviceID == "" || claims.DeviceID != deviceID {
		return Principal{}, errors.Unauthenticated("device binding mismatch")
	}

	session, err := g.sessions.GetActive(ctx, claims.SubjectID, deviceID)
	if err != nil {
		return Principal{}, err
	}

	return Principal{
		SubjectKind: SubjectEmployee,
		SubjectID:   claims.SubjectID,
		CompanyID:   session.CompanyID,
		DeviceID:    deviceID,
	}, nil
}
