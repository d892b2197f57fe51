package tenantauth

import (
	"context"
	"testing"

	"github.com/attendly/attendance-core/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_IsAdmin(t *testing.T) {
	admin := Principal{SubjectKind: SubjectAdmin, SubjectID: "admin-1", CompanyID: "company-1"}
	employee := Principal{SubjectKind: SubjectEmployee, SubjectID: "employee-1", CompanyID: "company-1"}

	assert.True(t, admin.IsAdmin())
	assert.False(t, employee.IsAdmin())
}

func TestPrincipal_OwnsEmployee(t *testing.T) {
	employee := Principal{SubjectKind: SubjectEmployee, SubjectID: "employee-1", CompanyID: "company-1"}
	admin := Principal{SubjectKind: SubjectAdmin, SubjectID: "employee-1", CompanyID: "company-1"}

	assert.True(t, employee.OwnsEmployee("employee-1"))
	assert.False(t, employee.OwnsEmployee("employee-2"))
	// an admin's SubjectID matching the employee id doesn't make it ownership -
	// OwnsEmployee only ever holds for SubjectEmployee principals.
	assert.False(t, admin.OwnsEmployee("employee-1"))
}

func TestWithPrincipal_SetsTenantID(t *testing.T) {
	p := Principal{SubjectKind: SubjectAdmin, SubjectID: "admin-1", CompanyID: "company-42"}
	ctx := WithPrincipal(context.Background(), p)

	tenantID, err := tenant.TenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "company-42", tenantID)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestFromContext_NoPrincipal(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.Error(t, err)
}

func TestRequireCompanyMatch(t *testing.T) {
	p := Principal{SubjectKind: SubjectAdmin, CompanyID: "company-1"}

	assert.NoError(t, RequireCompanyMatch(p, "company-1"))
	assert.Error(t, RequireCompanyMatch(p, "company-2"))
}

func TestCredentialsFromAuthHeader(t *testing.T) {
	token, err := CredentialsFromAuthHeader("Bearer abc.def.ghi", "")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = CredentialsFromAuthHeader("abc.def.ghi", "")
	assert.Error(t, err, "missing Bearer prefix must be rejected")

	_, err = CredentialsFromAuthHeader("", "")
	assert.Error(t, err)
}
