package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Operator permissions. A token grants the permissions listed in its perms
// claim; PermAll grants every permission.
const (
	PermAll        = "timetuner.*"
	PermStatus     = "timetuner.status"
	PermWorlds     = "timetuner.worlds"
	PermPause      = "timetuner.pause"
	PermSpeed      = "timetuner.speed"
	PermWorldSpeed = "timetuner.worldspeed"
	PermReset      = "timetuner.reset"
	PermReload     = "timetuner.reload"
	PermEvents     = "timetuner.events"
)

// AllPermissions lists every concrete permission.
var AllPermissions = []string{
	PermStatus, PermWorlds, PermPause, PermSpeed,
	PermWorldSpeed, PermReset, PermReload, PermEvents,
}

// Claims represents the JWT claims of an operator token.
type Claims struct {
	jwt.RegisteredClaims
	Perms []string `json:"perms"`
}

// Has reports whether the claims grant perm.
func (c *Claims) Has(perm string) bool {
	return slices.Contains(c.Perms, PermAll) || slices.Contains(c.Perms, perm)
}
