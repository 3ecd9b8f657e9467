package app_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microfinance-ledger/internal/app"
	"github.com/bibbank/microfinance-ledger/internal/application/dto"
	"github.com/bibbank/microfinance-ledger/internal/infrastructure/config"
	"github.com/bibbank/microfinance-ledger/pkg/testutil"
)

func memoryConfig(redisAddr string) config.Config {
	return config.Config{
		ServiceName: "ledger-test",
		Store:       config.StoreMemory,
		Lock:        config.LockRedis,
		Redis:       config.RedisConfig{Addr: redisAddr, LockTTL: time.Second, LockWait: time.Second},
		Scheduler:   config.SchedulerConfig{GraceDays: 3, OverdueDays: 30},
	}
}

func TestOpen_MemoryStore(t *testing.T) {
	mr, _ := testutil.NewMiniRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt, err := app.Open(context.Background(), memoryConfig(mr.Addr()), logger)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, rt.Close()) })

	require.NotNil(t, rt.UseCases)
	for name, p := range rt.Readiness() {
		assert.NoError(t, p.Ping(context.Background()), name)
	}

	quote, err := rt.UseCases.QuoteDisbursement.Execute(context.Background(), dto.QuoteDisbursementRequest{
		LoanType:     "FIXED_TERM",
		Principal:    decimal.NewFromInt(20000),
		InterestRate: decimal.NewFromInt(7),
		TermPeriods:  8,
	})
	require.NoError(t, err)
	testutil.AssertDecimal(t, "3900", quote.Installment)

	rec := httptest.NewRecorder()
	rt.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness_RedisDown(t *testing.T) {
	mr, _ := testutil.NewMiniRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt, err := app.Open(context.Background(), memoryConfig(mr.Addr()), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	mr.Close()
	assert.Error(t, rt.Readiness()["redis"].Ping(context.Background()))
	assert.NoError(t, rt.Readiness()["store"].Ping(context.Background()))
}

func TestKafkaConfig(t *testing.T) {
	cfg := memoryConfig("localhost:6379")
	cfg.Kafka = config.KafkaConfig{
		Brokers:       []string{"k1:9092"},
		ConsumerGroup: "ledger-worker",
		TLS:           true,
		SASLEnabled:   true,
		SASLMechanism: "SCRAM-SHA-256",
		SASLUsername:  "ledger",
		SASLPassword:  "kafka-secret",
	}
	rt := &app.Runtime{Config: cfg}

	kc := rt.KafkaConfig()
	assert.Equal(t, []string{"k1:9092"}, kc.Brokers)
	assert.Equal(t, "ledger-worker", kc.ConsumerGroup)
	assert.Equal(t, "ledger-test", kc.ClientID)
	assert.True(t, kc.TLS)
	assert.True(t, kc.SASLEnabled)
	assert.Equal(t, "SCRAM-SHA-256", kc.SASLMechanism)
	assert.Equal(t, "ledger", kc.SASLUsername)
	assert.Equal(t, "kafka-secret", kc.SASLPassword)
	assert.Equal(t, "localhost:6379", rt.RedisConnOpt().Addr)
}
