package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// MockTokenProvider is a test implementation of TokenProvider.
type MockTokenProvider struct {
	Token     string
	ExpiresOn time.Time
	Err       error
}

func (m *MockTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	if m.Err != nil {
		return "", time.Time{}, m.Err
	}
	return m.Token, m.ExpiresOn, nil
}

func (m *MockTokenProvider) String() string {
	return "MockTokenProvider"
}

func TestNewConnector_SelectsImplementation(t *testing.T) {
	t.Run("standard by default", func(t *testing.T) {
		c, err := NewConnector(pvsload.ConnectionParams{"host": "localhost"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &StandardConnector{}, c)
	})

	t.Run("aws iam", func(t *testing.T) {
		c, err := NewConnector(pvsload.ConnectionParams{
			"auth_method": "aws-iam",
			"host":        "inv.cluster.us-east-1.rds.amazonaws.com",
			"user":        "loader",
			"aws_region":  "us-east-1",
		}, nil)
		require.NoError(t, err)
		tc, ok := c.(*TokenBasedConnector)
		require.True(t, ok, "expected *TokenBasedConnector, got %T", c)
		assert.Equal(t, "AWS IAM", tc.providerName)
		assert.NotContains(t, tc.connString, "aws_region")
	})

	t.Run("aws iam without region", func(t *testing.T) {
		t.Setenv("AWS_REGION", "")
		_, err := NewConnector(pvsload.ConnectionParams{
			"auth_method": "aws-iam",
			"host":        "inv.cluster.rds.amazonaws.com",
			"user":        "loader",
		}, nil)
		assert.ErrorIs(t, err, pvsload.ErrInvalidConfig)
	})

	t.Run("google iam", func(t *testing.T) {
		c, err := NewConnector(pvsload.ConnectionParams{
			"auth_method":     "google-iam",
			"user":            "loader@project.iam",
			"google_instance": "project:us-central1:inventory",
		}, nil)
		require.NoError(t, err)
		assert.IsType(t, &GoogleCloudSQLConnector{}, c)
	})

	t.Run("google iam without instance", func(t *testing.T) {
		_, err := NewConnector(pvsload.ConnectionParams{
			"auth_method": "google-iam",
			"user":        "loader",
		}, nil)
		assert.ErrorIs(t, err, pvsload.ErrInvalidConfig)
	})

	t.Run("azure service principal", func(t *testing.T) {
		c, err := NewConnector(pvsload.ConnectionParams{
			"auth_method":         "azure",
			"host":                "inv.postgres.database.azure.com",
			"azure_tenant_id":     "00000000-0000-0000-0000-000000000001",
			"azure_client_id":     "00000000-0000-0000-0000-000000000002",
			"azure_client_secret": "secret",
		}, nil)
		require.NoError(t, err)
		tc, ok := c.(*TokenBasedConnector)
		require.True(t, ok, "expected *TokenBasedConnector, got %T", c)
		assert.Contains(t, tc.tokenProvider.String(), "AzureServicePrincipal")
		assert.NotContains(t, tc.tokenProvider.String(), "secret")
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewConnector(pvsload.ConnectionParams{"auth_method": "kerberos"}, nil)
		assert.ErrorIs(t, err, pvsload.ErrUnsupportedAuthMethod)
	})
}

func TestStandardConnector_InvalidParams(t *testing.T) {
	c := NewStandardConnector(BuildConnString(pvsload.ConnectionParams{"port": "not-a-port"}), nil)

	conn, err := c.Connect(context.Background())
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, pvsload.ErrInvalidConfig)
}

func TestStandardConnector_ConnectionRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping network test in short mode")
	}

	c := NewStandardConnector(BuildConnString(pvsload.ConnectionParams{
		"host":            "127.0.0.1",
		"port":            "1",
		"dbname":          "pvs",
		"user":            "nobody",
		"sslmode":         "disable",
		"connect_timeout": "2",
	}), nil)

	conn, err := c.Connect(context.Background())
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, pvsload.ErrConnectionFailed)
}

func TestTokenBasedConnector_TokenFailure(t *testing.T) {
	tokenErr := errors.New("credentials expired")
	c := NewTokenBasedConnector("host='localhost'", &MockTokenProvider{Err: tokenErr}, "Azure", nil)

	conn, err := c.Connect(context.Background())
	assert.Nil(t, conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, tokenErr)
	assert.ErrorIs(t, err, pvsload.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "failed to acquire Azure token")
}

func TestNewAWSIAMTokenProvider_Validation(t *testing.T) {
	_, err := NewAWSIAMTokenProvider("", "us-east-1", "u")
	assert.Error(t, err)
	_, err = NewAWSIAMTokenProvider("host:5432", "", "u")
	assert.Error(t, err)
	_, err = NewAWSIAMTokenProvider("host:5432", "us-east-1", "")
	assert.Error(t, err)

	p, err := NewAWSIAMTokenProvider("host:5432", "us-east-1", "u")
	require.NoError(t, err)
	assert.Equal(t, "AWSIAMTokenProvider(endpoint=host:5432, region=us-east-1, user=u)", p.String())
}

func TestNewAzureServicePrincipalProvider_RequiresAllParams(t *testing.T) {
	_, err := NewAzureServicePrincipalProvider("", "client", "secret")
	assert.Error(t, err)
	_, err = NewAzureServicePrincipalProvider("tenant", "", "secret")
	assert.Error(t, err)
	_, err = NewAzureServicePrincipalProvider("tenant", "client", "")
	assert.Error(t, err)
}

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		host         string
		port         int
		database     string
		wantContains string
	}{
		{
			name:         "connection refused",
			errMsg:       "dial tcp 127.0.0.1:5432: connection refused",
			host:         "127.0.0.1",
			port:         5432,
			database:     "pvs",
			wantContains: "connection refused to 127.0.0.1:5432",
		},
		{
			name:         "no such host",
			errMsg:       "dial tcp: lookup badhost.example.com: no such host",
			host:         "badhost.example.com",
			port:         5432,
			database:     "pvs",
			wantContains: `cannot resolve host "badhost.example.com"`,
		},
		{
			name:         "password auth failed",
			errMsg:       `password authentication failed for user "postgres"`,
			host:         "localhost",
			port:         5432,
			database:     "pvs",
			wantContains: `password authentication failed for database "pvs"`,
		},
		{
			name:         "database does not exist",
			errMsg:       `database "nope" does not exist`,
			host:         "localhost",
			port:         5432,
			database:     "nope",
			wantContains: `database "nope" does not exist`,
		},
		{
			name:         "timeout",
			errMsg:       "dial tcp 10.0.0.1:5432: i/o timeout",
			host:         "10.0.0.1",
			port:         5432,
			database:     "pvs",
			wantContains: "connection timed out to 10.0.0.1:5432",
		},
		{
			name:         "TLS error",
			errMsg:       "tls: handshake failure",
			host:         "localhost",
			port:         5432,
			database:     "pvs",
			wantContains: "SSL/TLS connection error",
		},
		{
			name:         "too many connections",
			errMsg:       "FATAL: too many connections for role",
			host:         "localhost",
			port:         5432,
			database:     "busydb",
			wantContains: `too many connections to database "busydb"`,
		},
		{
			name:         "unknown error falls through to default",
			errMsg:       "something completely unexpected happened",
			host:         "localhost",
			port:         5432,
			database:     "pvs",
			wantContains: "failed to connect to database",
		},
		{
			name:         "case insensitive matching",
			errMsg:       "CONNECTION REFUSED by firewall",
			host:         "firewall.host",
			port:         5433,
			database:     "pvs",
			wantContains: "connection refused to firewall.host:5433",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalErr := errors.New(tt.errMsg)
			wrapped := wrapConnectionError(originalErr, tt.host, tt.port, tt.database)

			if !strings.Contains(wrapped.Error(), tt.wantContains) {
				t.Errorf("wrapConnectionError() = %q, want it to contain %q", wrapped.Error(), tt.wantContains)
			}
			if !errors.Is(wrapped, originalErr) {
				t.Error("wrapped error does not unwrap to original error")
			}
			if !errors.Is(wrapped, pvsload.ErrConnectionFailed) {
				t.Error("wrapped error does not chain pvsload.ErrConnectionFailed")
			}
		})
	}
}
