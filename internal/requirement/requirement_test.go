package requirement

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		expected Requirement
		wantErr  error
	}{
		{
			name:     "no requirements",
			rawQuery: "aliasPath=mytest",
			expected: Requirement{AliasPath: "mytest"},
		},
		{
			name:     "boolean password flag",
			rawQuery: "aliasPath=secure1&password_required=true",
			expected: Requirement{AliasPath: "secure1", PasswordRequired: true},
		},
		{
			name:     "boolean location flag",
			rawQuery: "aliasPath=geo1&location_required=true",
			expected: Requirement{AliasPath: "geo1", LocationRequired: true},
		},
		{
			name:     "boolean flags explicitly false",
			rawQuery: "aliasPath=open1&password_required=false&location_required=false",
			expected: Requirement{AliasPath: "open1"},
		},
		{
			name:     "composite both factors",
			rawQuery: "aliasPath=both1&required=pass,loc",
			expected: Requirement{AliasPath: "both1", PasswordRequired: true, LocationRequired: true},
		},
		{
			name:     "composite password only",
			rawQuery: "aliasPath=both1&required=pass",
			expected: Requirement{AliasPath: "both1", PasswordRequired: true},
		},
		{
			name:     "composite wins over boolean flags",
			rawQuery: "aliasPath=mix&required=loc&password_required=true",
			expected: Requirement{AliasPath: "mix", LocationRequired: true},
		},
		{
			name:     "nested alias path preserved",
			rawQuery: "aliasPath=team/q3/report",
			expected: Requirement{AliasPath: "team/q3/report"},
		},
		{
			name:     "surrounding slashes trimmed",
			rawQuery: "aliasPath=/mytest/",
			expected: Requirement{AliasPath: "mytest"},
		},
		{
			name:     "missing alias",
			rawQuery: "password_required=true",
			wantErr:  ErrMissingAlias,
		},
		{
			name:     "empty alias",
			rawQuery: "aliasPath=",
			wantErr:  ErrMissingAlias,
		},
		{
			name:     "reason names password",
			rawQuery: "aliasPath=secure1&password_required=true&reason=pass",
			expected: Requirement{AliasPath: "secure1", PasswordRequired: true, PriorFailure: FailurePassword},
		},
		{
			name:     "reason names both factors",
			rawQuery: "aliasPath=both1&required=pass,loc&reason=pass,loc",
			expected: Requirement{AliasPath: "both1", PasswordRequired: true, LocationRequired: true, PriorFailure: FailurePasswordOrLocation},
		},
		{
			name:     "opaque reason falls back to active requirements",
			rawQuery: "aliasPath=geo1&location_required=true&reason=denied",
			expected: Requirement{AliasPath: "geo1", LocationRequired: true, PriorFailure: FailureLocation},
		},
		{
			name:     "legacy error parameter",
			rawQuery: "aliasPath=secure1&required=pass&error=auth",
			expected: Requirement{AliasPath: "secure1", PasswordRequired: true, PriorFailure: FailurePassword},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)

			req, err := Parse(query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req)
		})
	}
}

func TestParse_EncodingsAgree(t *testing.T) {
	composite, err := Parse(url.Values{
		"aliasPath": {"both1"},
		"required":  {"pass,loc"},
	})
	require.NoError(t, err)

	booleans, err := Parse(url.Values{
		"aliasPath":         {"both1"},
		"password_required": {"true"},
		"location_required": {"true"},
	})
	require.NoError(t, err)

	assert.Equal(t, composite, booleans)
}

func TestParse_Idempotent(t *testing.T) {
	query, err := url.ParseQuery("aliasPath=both1&required=pass,loc&reason=auth")
	require.NoError(t, err)

	first, err := Parse(query)
	require.NoError(t, err)
	second, err := Parse(query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFailureReason_Message(t *testing.T) {
	assert.Empty(t, FailureNone.Message())
	assert.Contains(t, FailurePassword.Message(), "password")
	assert.Contains(t, FailureLocation.Message(), "outside")

	// When both factors are required the server does not say which
	// check failed, so the message must not attribute fault.
	both := FailurePasswordOrLocation.Message()
	assert.Contains(t, both, "Either")
	assert.Contains(t, both, "password is wrong")
	assert.Contains(t, both, "outside the permitted area")
}
