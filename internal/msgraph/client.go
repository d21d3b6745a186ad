// Package msgraph provides the authenticated HTTP client shared by the
// Microsoft Graph integrations.
package msgraph

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const tokenScope = "https://graph.microsoft.com/.default"

// Credentials are the app registration used for client-credential
// authentication against Microsoft Entra.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Configured reports whether all credential fields are set.
func (c Credentials) Configured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// NewHTTPClient builds a retrying HTTP client that injects bearer tokens
// acquired through the client-credentials flow. Token refresh is handled
// by the underlying transport.
func NewHTTPClient(ctx context.Context, creds Credentials, logger zerolog.Logger) *retryablehttp.Client {
	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", creds.TenantID),
		Scopes:       []string{tokenScope},
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.HTTPClient = cc.Client(ctx)
	client.Logger = leveledLogger{logger: logger.With().Str("component", "msgraph").Logger()}
	return client
}

// leveledLogger adapts zerolog to retryablehttp's leveled logger.
type leveledLogger struct {
	logger zerolog.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
