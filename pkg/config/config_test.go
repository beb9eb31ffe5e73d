package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.App.Storage)
	assert.Equal(t, PlacementStub, cfg.Procurement.PlacementMode)
	assert.Equal(t, 10*time.Second, cfg.Procurement.PlacementTimeout)
	assert.Equal(t, 2*time.Second, cfg.Kafka.PublishTimeout)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("STORAGE", "Postgres")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("PLACEMENT_MODE", "http")
	t.Setenv("PLACEMENT_URL", "https://proveedores.example.com")
	t.Setenv("PLACEMENT_TIMEOUT", "3s")
	t.Setenv("PLACEMENT_STUB_FAILURE_RATE", "0.25")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("HTTP_PORT", "no-es-numero")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.App.Storage)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Procurement.PlacementTimeout)
	assert.Equal(t, 0.25, cfg.Procurement.StubFailureRate)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 8080, cfg.HTTP.Port, "un entero inválido conserva el valor por defecto")
}

func TestLoad_Validaciones(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"storage desconocido", map[string]string{"STORAGE": "redis"}, "STORAGE"},
		{"http sin url", map[string]string{"PLACEMENT_MODE": "http"}, "PLACEMENT_URL"},
		{"modo desconocido", map[string]string{"PLACEMENT_MODE": "fax"}, "PLACEMENT_MODE"},
		{"tasa fuera de rango", map[string]string{"PLACEMENT_STUB_FAILURE_RATE": "1.5"}, "FAILURE_RATE"},
		{"producción sin secreto", map[string]string{"APP_ENV": "production"}, "JWT_SECRET"},
		{"admin con clave corta", map[string]string{"ADMIN_EMAIL": "admin@obra.co", "ADMIN_PASSWORD": "123"}, "ADMIN_PASSWORD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "secreto", DBName: "materiales", SSLMode: "disable"}
	assert.Contains(t, c.ConnectionString(), "materiales")

	c.DatabaseURL = "postgres://u:p@remoto:5432/x"
	assert.Equal(t, "postgres://u:p@remoto:5432/x", c.ConnectionString())
}
