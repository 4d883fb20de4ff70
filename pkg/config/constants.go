package config

// EnvPrefix is the envconfig prefix applied to every variable.
const EnvPrefix = "BLOCKWATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BLOCKWATCH_DB_DSN"
	EnvDBHost = "BLOCKWATCH_DB_HOST"
	EnvDBUser = "BLOCKWATCH_DB_USER"
	EnvDBName = "BLOCKWATCH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
