package config

// EnvPrefix is the envconfig prefix for all StockTrail variables.
const EnvPrefix = "STOCKTRAIL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "STOCKTRAIL_APP_ENV"
	EnvPort   = "STOCKTRAIL_APP_PORT"

	EnvDBDSN  = "STOCKTRAIL_DB_DSN"
	EnvDBHost = "STOCKTRAIL_DB_HOST"
	EnvDBUser = "STOCKTRAIL_DB_USER"
	EnvDBName = "STOCKTRAIL_DB_NAME"

	EnvRedisURL  = "STOCKTRAIL_REDIS_URL"
	EnvJWTSecret = "STOCKTRAIL_JWT_SECRET"
	EnvJWTIssuer = "STOCKTRAIL_JWT_ISSUER"
)

// legacyDBEnvVars are required when no full DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
