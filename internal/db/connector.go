package db

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// configureConn routes server NOTICE messages (for example "view does not
// exist, skipping") to the verbose log.
func configureConn(connConfig *pgx.ConnConfig, logger pvsload.Logger) {
	if logger == nil {
		return
	}
	connConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}
}

// parseConnString parses a keyword/value connection string, classifying
// failures as configuration errors.
func parseConnString(connString string) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", pvsload.ErrInvalidConfig, err)
	}
	return connConfig, nil
}

// StandardConnector opens a fresh connection on every Connect call using
// password, .pgpass or trust authentication.
type StandardConnector struct {
	connString string
	logger     pvsload.Logger
}

// NewStandardConnector creates a StandardConnector for a libpq connection string.
func NewStandardConnector(connString string, logger pvsload.Logger) *StandardConnector {
	return &StandardConnector{
		connString: connString,
		logger:     logger,
	}
}

// Connect establishes a single connection. The caller owns it and must Close it.
func (c *StandardConnector) Connect(ctx context.Context) (pvsload.DBConn, error) {
	connConfig, err := parseConnString(c.connString)
	if err != nil {
		return nil, err
	}

	configureConn(connConfig, c.logger)

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, connConfig.Host, int(connConfig.Port), connConfig.Database)
	}

	return NewConnAdapter(conn, nil), nil
}

// NewConnector is a factory function that creates the appropriate Connector
// based on the auth_method connection parameter. It matches
// pvsload.ConnectorFactory.
func NewConnector(params pvsload.ConnectionParams, logger pvsload.Logger) (pvsload.Connector, error) {
	method, err := params.AuthMethod()
	if err != nil {
		return nil, err
	}

	connString := BuildConnString(params)
	if logger != nil {
		logger.Verbose("Connection parameters: %s", RedactedConnString(params))
	}

	switch method {
	case pvsload.AuthMethodStandard:
		return NewStandardConnector(connString, logger), nil
	case pvsload.AuthMethodAWSIAM:
		return newAWSConnector(connString, params, logger)
	case pvsload.AuthMethodGoogleIAM:
		return newGoogleConnector(connString, params, logger)
	case pvsload.AuthMethodAzureEntraID:
		return newAzureConnector(connString, params, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", method, pvsload.ErrUnsupportedAuthMethod)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
// The region comes from aws_region, falling back to $AWS_REGION.
func newAWSConnector(connString string, params pvsload.ConnectionParams, logger pvsload.Logger) (pvsload.Connector, error) {
	connConfig, err := parseConnString(connString)
	if err != nil {
		return nil, err
	}

	region := params[pvsload.ParamAWSRegion]
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	endpoint := fmt.Sprintf("%s:%d", connConfig.Host, connConfig.Port)
	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, region, connConfig.User)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w: %w", pvsload.ErrInvalidConfig, err)
	}

	return NewTokenBasedConnector(connString, tokenProvider, "AWS IAM", logger), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(connString string, params pvsload.ConnectionParams, logger pvsload.Logger) (pvsload.Connector, error) {
	instance := params[pvsload.ParamGoogleInstance]
	if instance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires google_instance (project:region:instance): %w", pvsload.ErrInvalidConfig)
	}
	if params["user"] == "" && params["username"] == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires user: %w", pvsload.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(connString, instance, logger), nil
}

// newAzureConnector creates a token-based connector with the Azure Entra ID token provider.
// If tenant, client and secret are all present, Service Principal auth is used.
// Otherwise, falls back to DefaultAzureCredential chain.
func newAzureConnector(connString string, params pvsload.ConnectionParams, logger pvsload.Logger) (pvsload.Connector, error) {
	tenantID := firstNonEmpty(params[pvsload.ParamAzureTenantID], os.Getenv("AZURE_TENANT_ID"))
	clientID := firstNonEmpty(params[pvsload.ParamAzureClientID], os.Getenv("AZURE_CLIENT_ID"))
	clientSecret := firstNonEmpty(params[pvsload.ParamAzureClientSecret], os.Getenv("AZURE_CLIENT_SECRET"))

	var tokenProvider TokenProvider
	var err error

	if tenantID != "" && clientID != "" && clientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(tenantID, clientID, clientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(connString, tokenProvider, "Azure", logger), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// The result always chains pvsload.ErrConnectionFailed and the original error.
func wrapConnectionError(err error, host string, port int, database string) error {
	return fmt.Errorf("%w: %w", pvsload.ErrConnectionFailed, connectionHint(err, host, port, database))
}

func connectionHint(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port in the [postgresql] section
  - Firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password in database.ini (or $PGPASSWORD, ~/.pgpass)
  - Wrong user
  - User does not have access to the database

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

Check the database key of the [postgresql] section.

Original error: %w`, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode is wrong
  - Certificate verification failed (try sslmode=require)
  - Client certificates missing (check sslcert, sslkey)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale sessions from earlier runs

Original error: %w`, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}
