package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// GoogleCloudSQLConnector opens connections to Google Cloud SQL using IAM
// database authentication through the Cloud SQL Go Connector.
//
// Each connection gets its own dialer, released when the connection closes.
type GoogleCloudSQLConnector struct {
	connString string
	instance   string
	logger     pvsload.Logger
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(connString, instance string, logger pvsload.Logger) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		connString: connString,
		instance:   instance,
		logger:     logger,
	}
}

// Connect dials the instance through the Cloud SQL connector, which handles
// authentication and TLS. Host, port and sslmode parameters are ignored.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (pvsload.DBConn, error) {
	connConfig, err := parseConnString(c.connString)
	if err != nil {
		return nil, err
	}

	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w: %w", pvsload.ErrConnectionFailed, err)
	}

	connConfig.TLSConfig = nil
	connConfig.Fallbacks = nil
	connConfig.LookupFunc = func(_ context.Context, host string) ([]string, error) {
		return []string{host}, nil
	}
	connConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}
	configureConn(connConfig, c.logger)

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		dialer.Close()
		return nil, wrapConnectionError(err, c.instance, int(connConfig.Port), connConfig.Database)
	}

	return NewConnAdapter(conn, func() { dialer.Close() }), nil
}
