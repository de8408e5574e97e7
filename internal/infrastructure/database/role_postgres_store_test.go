package database

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/utils/metrics"
)

func newTestStore(settings RoleStoreSettings) *pgxRoleStore {
	return &pgxRoleStore{settings: settings, logger: zap.NewNop()}
}

func TestNormalizeLimit(t *testing.T) {
	store := newTestStore(RoleStoreSettings{DefaultListLimit: 100, MaxListLimit: 1000})

	limit, err := store.normalizeLimit(nil)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	requested := 50
	limit, err = store.normalizeLimit(&requested)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)

	oversized := 5000
	limit, err = store.normalizeLimit(&oversized)
	require.NoError(t, err)
	assert.Equal(t, 1000, limit)

	negative := -1
	_, err = store.normalizeLimit(&negative)
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeInvalidLimit, domainErrors.Code(err))
}

func TestNormalizeOffset(t *testing.T) {
	offset, err := normalizeOffset(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	zero := 0
	offset, err = normalizeOffset(&zero)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	first := 1
	offset, err = normalizeOffset(&first)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	eleventh := 11
	offset, err = normalizeOffset(&eleventh)
	require.NoError(t, err)
	assert.Equal(t, 10, offset)

	negative := -5
	_, err = normalizeOffset(&negative)
	require.Error(t, err)
	assert.Equal(t, domainErrors.CodeInvalidOffset, domainErrors.Code(err))
}

func TestBuildFilterPattern(t *testing.T) {
	assert.Equal(t, "%", buildFilterPattern(""))
	assert.Equal(t, "%", buildFilterPattern("   "))
	assert.Equal(t, "%", buildFilterPattern("*"))
	assert.Equal(t, "admin%", buildFilterPattern("admin*"))
	assert.Equal(t, "%admin%", buildFilterPattern("*admin*"))
	assert.Equal(t, "r_le", buildFilterPattern("r?le"))
	assert.Equal(t, `100\%`, buildFilterPattern("100%"))
	assert.Equal(t, `a\_b%`, buildFilterPattern("a_b*"))
}

func TestSplitMemberName(t *testing.T) {
	domain, member := splitMemberName("alice")
	assert.Equal(t, "PRIMARY", domain)
	assert.Equal(t, "alice", member)

	domain, member = splitMemberName("LDAP/bob")
	assert.Equal(t, "LDAP", domain)
	assert.Equal(t, "bob", member)

	domain, member = splitMemberName("LDAP/ou/carol")
	assert.Equal(t, "LDAP", domain)
	assert.Equal(t, "ou/carol", member)
}

func TestJoinMemberName(t *testing.T) {
	assert.Equal(t, "alice", joinMemberName("", "alice"))
	assert.Equal(t, "alice", joinMemberName("PRIMARY", "alice"))
	assert.Equal(t, "alice", joinMemberName("primary", "alice"))
	assert.Equal(t, "LDAP/bob", joinMemberName("LDAP", "bob"))
}

func TestIsSystemRole(t *testing.T) {
	store := newTestStore(RoleStoreSettings{
		SystemRolesEnabled: true,
		SystemRoles:        []string{"Administrator", "Everyone"},
	})
	assert.True(t, store.isSystemRole("Administrator"))
	assert.True(t, store.isSystemRole("administrator"))
	assert.True(t, store.isSystemRole("EVERYONE"))
	assert.False(t, store.isSystemRole("editor"))

	disabled := newTestStore(RoleStoreSettings{
		SystemRolesEnabled: false,
		SystemRoles:        []string{"Administrator"},
	})
	assert.False(t, disabled.isSystemRole("Administrator"))
	assert.Nil(t, disabled.GetSystemRoles())
}

func TestObserveDB_CountsByOutcome(t *testing.T) {
	observeDB("unit_test_op", nil)
	observeDB("unit_test_op", errors.New("boom"))

	assert.Equal(t, 1.0,
		testutil.ToFloat64(metrics.DatabaseOperationsTotal.WithLabelValues("unit_test_op", "success")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(metrics.DatabaseOperationsTotal.WithLabelValues("unit_test_op", "failure")))
}
