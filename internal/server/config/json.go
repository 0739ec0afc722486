package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/medchain/medchain-server/internal/flagx"
	"github.com/medchain/medchain-server/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30s" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`

	ContentStoreKind string `json:"content_store_kind"`
	ContentStorePath string `json:"content_store_path"`
	S3RootUser       string `json:"s3_root_user"`
	S3RootPassword   string `json:"s3_root_password"`
	S3Bucket         string `json:"s3_bucket"`
	S3Region         string `json:"s3_region"`
	S3BaseEndpoint   string `json:"s3_base_endpoint"`

	FabricEndpoint    string `json:"fabric_endpoint"`
	FabricGatewayPeer string `json:"fabric_gateway_peer"`
	FabricMSPID       string `json:"fabric_msp_id"`
	FabricCertPath    string `json:"fabric_cert_path"`
	FabricKeyDirPath  string `json:"fabric_key_dir_path"`
	FabricTLSCertPath string `json:"fabric_tls_cert_path"`
	FabricChannel     string `json:"fabric_channel"`
	FabricChaincode   string `json:"fabric_chaincode"`

	AnalysisEndpoint string         `json:"analysis_endpoint"`
	AnalysisModel    string         `json:"analysis_model"`
	ExternalTimeout  timex.Duration `json:"external_timeout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags. If neither flag is set, no file is loaded. A file that
// cannot be read or parsed is a startup-fatal misconfiguration and panics.
// Only fields present in the file override the current values.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = time.Duration(v.Duration)
		}
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)

	setString(&config.ContentStoreKind, c.ContentStoreKind)
	setString(&config.ContentStorePath, c.ContentStorePath)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.FabricEndpoint, c.FabricEndpoint)
	setString(&config.FabricGatewayPeer, c.FabricGatewayPeer)
	setString(&config.FabricMSPID, c.FabricMSPID)
	setString(&config.FabricCertPath, c.FabricCertPath)
	setString(&config.FabricKeyDirPath, c.FabricKeyDirPath)
	setString(&config.FabricTLSCertPath, c.FabricTLSCertPath)
	setString(&config.FabricChannel, c.FabricChannel)
	setString(&config.FabricChaincode, c.FabricChaincode)

	setString(&config.AnalysisEndpoint, c.AnalysisEndpoint)
	setString(&config.AnalysisModel, c.AnalysisModel)
	setDuration(&config.ExternalTimeout, c.ExternalTimeout)
}
