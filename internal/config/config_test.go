package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
	t.Setenv("STORAGE_BUCKET", "bookstore-assets")
	t.Setenv("BREVO_KEY", "xkeysib-1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 20*time.Second, cfg.AttachmentFetchTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxWebhookBodySize)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "mxn", cfg.Currency)
	assert.Equal(t, DeliverySync, cfg.ReceiptDelivery)
	assert.Contains(t, cfg.CheckoutSuccessURL, "{CHECKOUT_SESSION_ID}")
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "bookstore-sales", cfg.KafkaTopic)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RECEIPT_DELIVERY", "async")
	t.Setenv("ATTACHMENT_FETCH_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, DeliveryAsync, cfg.ReceiptDelivery)
	assert.Equal(t, 5*time.Second, cfg.AttachmentFetchTimeout)
}

func TestLoad_MissingRequiredListsAll(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("STORAGE_BUCKET", "bucket")
	t.Setenv("BREVO_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.Contains(t, err.Error(), "BREVO_KEY")
	assert.NotContains(t, err.Error(), "STORAGE_BUCKET")
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("RECEIPT_DELIVERY", "carrier-pigeon")

	_, err := Load("")
	assert.ErrorContains(t, err, "RECEIPT_DELIVERY")

	t.Setenv("RECEIPT_DELIVERY", "sync")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load("")
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequired(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bookstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CURRENCY: usd\nHTTP_PORT: \"7000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, "7000", cfg.HTTPPort)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDatabase_SkipsGatewayKeys(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("BREVO_KEY", "")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := LoadDatabase("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "internal/repository/migrations", cfg.MigrationsPath)
}
