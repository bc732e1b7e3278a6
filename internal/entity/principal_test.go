package entity_test

import (
	"reflect"
	"testing"

	"healthathome/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Token collisions must surface as duplicate-key errors from the database,
// not silently coexist, so issuance can retry with a fresh token. The
// migration source for that guarantee is the struct tag.
func TestLiveTokenColumnsMigrateAsUnique(t *testing.T) {
	accountType := reflect.TypeOf(entity.Account{})

	cases := []struct {
		field  string
		column string
	}{
		{"VerificationToken", "account_verification_token"},
		{"PasswordResetToken", "account_password_reset_token"},
	}
	for _, tc := range cases {
		field, ok := accountType.FieldByName(tc.field)
		require.True(t, ok, tc.field)
		tag := field.Tag.Get("gorm")
		assert.Contains(t, tag, "uniqueIndex:", tc.field)
		// Partial predicate: cleared tokens are stored as '' and must stay
		// exempt from the uniqueness constraint.
		assert.Contains(t, tag, "where:"+tc.column+" <> ''", tc.field)
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, entity.KindPatient.Valid())
	assert.True(t, entity.KindPractitioner.Valid())
	assert.True(t, entity.KindAdmin.Valid())
	assert.False(t, entity.Kind("nurse").Valid())
	assert.Equal(t, "admin", entity.KindAdmin.Role())
}
