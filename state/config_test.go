package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig(1, RoleSensor)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBroadcastNodeID(t *testing.T) {
	cfg := DefaultConfig(Broadcast, RoleSensor)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadSpreadingFactor(t *testing.T) {
	cfg := DefaultConfig(1, RoleRelay)
	cfg.SpreadingFactor = 20
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedTrickleBounds(t *testing.T) {
	cfg := DefaultConfig(1, RoleGateway)
	cfg.TrickleIMinMs = cfg.TrickleIMaxMs + 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProtocol(t *testing.T) {
	cfg := DefaultConfig(1, RoleRelay)
	cfg.Protocol = "unknown"
	assert.Error(t, cfg.Validate())
}
