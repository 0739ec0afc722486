package config

import (
	"flag"
	"os"
	"time"

	"github.com/medchain/medchain-server/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-k string   content store kind (s3, local, memory)
//	-f string   Fabric gateway endpoint (empty selects the null anchor adapter)
//	-o string   analysis backend endpoint
//	-m string   analysis model name
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-k", "-f", "-o", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.ContentStoreKind, "k", config.ContentStoreKind, "content store kind (s3, local, memory)")
	fs.StringVar(&config.FabricEndpoint, "f", config.FabricEndpoint, "Fabric gateway endpoint")
	fs.StringVar(&config.AnalysisEndpoint, "o", config.AnalysisEndpoint, "analysis backend endpoint")
	fs.StringVar(&config.AnalysisModel, "m", config.AnalysisModel, "analysis model name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}
