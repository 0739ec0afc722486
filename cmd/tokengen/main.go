// tokengen mints signed bearer tokens for local and test deployments. The
// server never issues tokens itself; identity arrives pre-signed from the
// deployment's identity provider, and this tool stands in for that provider
// during development and operations.
//
// The signing secret and validity window come from the server configuration
// (defaults, .env, JSON overlay, flags), so minted tokens match whatever the
// server at hand would accept:
//
//	tokengen -u doc-1 -r doctor
//	JWT_SECRET=prodsecret tokengen -u p-42 -r patient
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/medchain/medchain-server/internal/flagx"
	"github.com/medchain/medchain-server/internal/server/auth"
	"github.com/medchain/medchain-server/internal/server/config"
	"github.com/medchain/medchain-server/internal/server/models"
)

func main() {
	cfg := config.LoadConfig()

	token, err := mint(os.Args[1:], cfg)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(token)
}

// mint parses the tool's own flags and signs a token with the configured
// secret and validity window. Server flags such as -s and -t pass through
// config.LoadConfig untouched; only -u and -r are claimed here.
func mint(args []string, cfg *config.Config) (string, error) {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	userID := fs.String("u", "", "user id to embed as the token subject")
	role := fs.String("r", string(models.RolePatient), "role: patient, doctor or institution")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-u", "-r"})); err != nil {
		return "", err
	}

	if *userID == "" {
		return "", errors.New("user id is required (-u)")
	}
	r := models.Role(*role)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", *role)
	}
	if cfg.SecretKey == "" {
		return "", errors.New("secret key is not configured")
	}

	return auth.GenerateToken(*userID, r, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
}
