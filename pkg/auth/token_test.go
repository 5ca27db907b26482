package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "fabops",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	tenantID := uuid.New()
	actorID := uuid.New()

	payload := AccessTokenPayload{
		TenantID: tenantID,
		ActorID:  actorID,
		Role:     enums.ActorRolePlanner,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.TenantID != tenantID {
		t.Fatalf("expected tenant_id %s, got %s", tenantID, claims.TenantID)
	}
	if claims.ActorID != actorID {
		t.Fatalf("expected actor_id %s, got %s", actorID, claims.ActorID)
	}
	if claims.Role != enums.ActorRolePlanner {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Subject != actorID.String() {
		t.Fatalf("expected subject %s, got %s", actorID, claims.Subject)
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "fabops",
		ExpirationMinutes: 10,
	}
	now := time.Now()
	payload := AccessTokenPayload{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     enums.ActorRoleAdmin,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token+"x")
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "fabops",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)
	payload := AccessTokenPayload{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     enums.ActorRoleOperator,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "fabops",
		ExpirationMinutes: 5,
	}
	now := time.Now()
	payload := AccessTokenPayload{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     "",
	}

	if _, err := MintAccessToken(cfg, now, payload); err == nil {
		t.Fatal("expected invalid role error")
	}
}

func TestMintAccessTokenMissingTenant(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "fabops",
		ExpirationMinutes: 5,
	}
	payload := AccessTokenPayload{
		ActorID: uuid.New(),
		Role:    enums.ActorRoleService,
	}

	if _, err := MintAccessToken(cfg, time.Now(), payload); err == nil {
		t.Fatal("expected missing tenant error")
	}
}
