package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Modos de almacenamiento del ledger.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Modos del adaptador de colocación de órdenes.
const (
	PlacementStub = "stub"
	PlacementHTTP = "http"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App         AppConfig
	DB          DBConfig
	JWT         JWTConfig
	HTTP        HTTPConfig
	Kafka       KafkaConfig
	Procurement ProcurementConfig
	Metrics     MetricsConfig
	Telemetry   TelemetryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	Storage  string // memory | postgres
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	MinConns    int
	ForceIPv4   bool
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN construye el connection string con URL encoding para caracteres especiales en la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
	// Administrador inicial: se crea al arrancar si no hay usuarios.
	AdminEmail    string
	AdminPassword string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig canal de eventos. Sin brokers se usa el bus en memoria.
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	PublishTimeout time.Duration
}

// Enabled indica si hay brokers configurados.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// ProcurementConfig adaptador hacia el sistema de pedidos de proveedores.
type ProcurementConfig struct {
	PlacementMode    string // stub | http
	PlacementURL     string
	PlacementAPIKey  string
	PlacementTimeout time.Duration
	StubFailureRate  float64
	StubLatency      time.Duration
}

// MetricsConfig exposición Prometheus.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// TelemetryConfig exportación de trazas OTLP/HTTP.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string // host:port del collector
	URLPath     string
	ServiceName string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, KAFKA_BROKERS, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // opcional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "materiales-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			Storage:  strings.ToLower(getString(v, "STORAGE", StorageMemory)),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "materiales"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			MinConns:    getInt(v, "DB_MIN_CONNS", 2),
			ForceIPv4:   getBool(v, "DB_FORCE_IPV4", false),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:        getString(v, "JWT_SECRET", ""),
			Expiration:    getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:        getString(v, "JWT_ISSUER", "materiales-api"),
			AdminEmail:    getString(v, "ADMIN_EMAIL", ""),
			AdminPassword: getString(v, "ADMIN_PASSWORD", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Kafka: KafkaConfig{
			Brokers:        getList(v, "KAFKA_BROKERS"),
			Topic:          getString(v, "KAFKA_TOPIC", "materials.events"),
			GroupID:        getString(v, "KAFKA_GROUP_ID", "procurement"),
			PublishTimeout: getDuration(v, "EVENT_PUBLISH_TIMEOUT", 2*time.Second),
		},
		Procurement: ProcurementConfig{
			PlacementMode:    strings.ToLower(getString(v, "PLACEMENT_MODE", PlacementStub)),
			PlacementURL:     getString(v, "PLACEMENT_URL", ""),
			PlacementAPIKey:  getString(v, "PLACEMENT_API_KEY", ""),
			PlacementTimeout: getDuration(v, "PLACEMENT_TIMEOUT", 10*time.Second),
			StubFailureRate:  getFloat(v, "PLACEMENT_STUB_FAILURE_RATE", 0),
			StubLatency:      getDuration(v, "PLACEMENT_STUB_LATENCY", 200*time.Millisecond),
		},
		Metrics: MetricsConfig{
			Enabled: getBool(v, "METRICS_ENABLED", true),
			Path:    getString(v, "METRICS_PATH", "/metrics"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getBool(v, "OTEL_ENABLED", false),
			Endpoint:    getString(v, "OTEL_EXPORTER_ENDPOINT", "localhost:4318"),
			URLPath:     getString(v, "OTEL_EXPORTER_URL_PATH", "/v1/traces"),
			ServiceName: getString(v, "OTEL_SERVICE_NAME", "materiales-api"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: STORAGE inválido %q (memory|postgres)", c.App.Storage)
	}
	switch c.Procurement.PlacementMode {
	case PlacementStub:
	case PlacementHTTP:
		if c.Procurement.PlacementURL == "" {
			return fmt.Errorf("config: PLACEMENT_URL requerido con PLACEMENT_MODE=http")
		}
	default:
		return fmt.Errorf("config: PLACEMENT_MODE inválido %q (stub|http)", c.Procurement.PlacementMode)
	}
	if c.Procurement.StubFailureRate < 0 || c.Procurement.StubFailureRate > 1 {
		return fmt.Errorf("config: PLACEMENT_STUB_FAILURE_RATE debe estar en [0,1]")
	}
	if c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET requerido en producción")
	}
	if c.JWT.AdminEmail != "" && len(c.JWT.AdminPassword) < 8 {
		return fmt.Errorf("config: ADMIN_PASSWORD debe tener al menos 8 caracteres")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	return v.GetBool(key)
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if !v.IsSet(key) {
		return def
	}
	return v.GetFloat64(key)
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

// getList separa valores por coma: KAFKA_BROKERS=host1:9092,host2:9092.
func getList(v *viper.Viper, key string) []string {
	var out []string
	for _, p := range strings.Split(getString(v, key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
