package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays values from environment variables onto config. A .env
// file in the working directory is loaded first when present; real
// environment variables still take precedence over it.
func parseEnv(config *Config) {
	godotenv.Load()

	setString := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, name string) {
		v, ok := os.LookupEnv(name)
		if !ok {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic("invalid duration in " + name + ": " + err.Error())
		}
		*dst = d
	}

	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "JWT_SECRET")
	setDuration(&config.TokenValidityDuration, "TOKEN_VALIDITY")

	setString(&config.ContentStoreKind, "CONTENT_STORE")
	setString(&config.ContentStorePath, "CONTENT_STORE_PATH")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	setString(&config.FabricEndpoint, "FABRIC_ENDPOINT")
	setString(&config.FabricGatewayPeer, "FABRIC_GATEWAY_PEER")
	setString(&config.FabricMSPID, "FABRIC_MSP_ID")
	setString(&config.FabricCertPath, "FABRIC_CERT_PATH")
	setString(&config.FabricKeyDirPath, "FABRIC_KEY_DIR")
	setString(&config.FabricTLSCertPath, "FABRIC_TLS_CERT_PATH")
	setString(&config.FabricChannel, "FABRIC_CHANNEL")
	setString(&config.FabricChaincode, "FABRIC_CHAINCODE")

	setString(&config.AnalysisEndpoint, "ANALYSIS_ENDPOINT")
	setString(&config.AnalysisModel, "ANALYSIS_MODEL")
	setDuration(&config.ExternalTimeout, "EXTERNAL_TIMEOUT")
}
