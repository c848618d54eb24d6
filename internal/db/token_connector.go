package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pvsload/pkg/pvsload"
)

// TokenBasedConnector opens connections for cloud providers that
// authenticate with short-lived tokens (AWS IAM, Azure Entra ID).
// A new token is requested for every connection, so a long run never
// reuses an expired one.
type TokenBasedConnector struct {
	connString    string
	tokenProvider TokenProvider
	providerName  string
	logger        pvsload.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for the password.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(connString string, tokenProvider TokenProvider, providerName string, logger pvsload.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		connString:    connString,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a token and opens one connection with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (pvsload.DBConn, error) {
	connConfig, err := parseConnString(c.connString)
	if err != nil {
		return nil, err
	}

	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, pvsload.ErrConnectionFailed, err)
	}

	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning && c.logger != nil {
		c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
	}

	connConfig.Password = token
	configureConn(connConfig, c.logger)

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, connConfig.Host, int(connConfig.Port), connConfig.Database)
	}

	return NewConnAdapter(conn, nil), nil
}
