package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/server/auth"
	"github.com/medchain/medchain-server/internal/server/config"
	"github.com/medchain/medchain-server/internal/server/models"
)

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:             "test-secret",
		TokenValidityDuration: time.Hour,
	}
}

func TestMint_TokenParsesBackToIdentity(t *testing.T) {
	cfg := testConfig()

	token, err := mint([]string{"-u", "doc-1", "-r", "doctor"}, cfg)
	require.NoError(t, err)

	identity, err := auth.ParseIdentity(token, []byte(cfg.SecretKey))
	require.NoError(t, err)
	require.Equal(t, "doc-1", identity.UserID)
	require.Equal(t, models.RoleDoctor, identity.Role)
}

func TestMint_DefaultsToPatientRole(t *testing.T) {
	cfg := testConfig()

	token, err := mint([]string{"-u", "p-1"}, cfg)
	require.NoError(t, err)

	identity, err := auth.ParseIdentity(token, []byte(cfg.SecretKey))
	require.NoError(t, err)
	require.Equal(t, models.RolePatient, identity.Role)
}

func TestMint_HonorsConfiguredValidity(t *testing.T) {
	cfg := testConfig()
	cfg.TokenValidityDuration = -time.Minute

	token, err := mint([]string{"-u", "p-1"}, cfg)
	require.NoError(t, err)

	_, err = auth.ParseIdentity(token, []byte(cfg.SecretKey))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestMint_Validation(t *testing.T) {
	cfg := testConfig()

	_, err := mint(nil, cfg)
	require.Error(t, err, "missing user id")

	_, err = mint([]string{"-u", "p-1", "-r", "janitor"}, cfg)
	require.Error(t, err, "unknown role")

	cfg.SecretKey = ""
	_, err = mint([]string{"-u", "p-1"}, cfg)
	require.Error(t, err, "empty secret")
}

func TestMint_IgnoresServerFlags(t *testing.T) {
	cfg := testConfig()

	token, err := mint([]string{"-u", "p-1", "-s", "other-secret", "-a", ":9999"}, cfg)
	require.NoError(t, err)

	_, err = auth.ParseIdentity(token, []byte(cfg.SecretKey))
	require.NoError(t, err)
}
