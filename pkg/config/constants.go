package config

// EnvPrefix is applied by envconfig when resolving unset struct tags.
const EnvPrefix = "AMERTA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and tooling.
const (
	EnvAppEnv   = "AMERTA_APP_ENV"
	EnvPort     = "AMERTA_APP_PORT"
	EnvLogLevel = "AMERTA_LOG_LEVEL"

	EnvDBDSN  = "AMERTA_DB_DSN"
	EnvDBHost = "AMERTA_DB_HOST"
	EnvDBUser = "AMERTA_DB_USER"
	EnvDBName = "AMERTA_DB_NAME"

	EnvRedisURL = "AMERTA_REDIS_URL"

	EnvJWTSecret  = "AMERTA_JWT_SECRET"
	EnvJWTIssuer  = "AMERTA_JWT_ISSUER"
	EnvJWTExpMins = "AMERTA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "AMERTA_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "AMERTA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "AMERTA_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
