package accountgate

import (
	"strings"

	"github.com/porthorian/accountgate/pkg/connector"
)

// Credentials identify the account a call runs as. SwitchUser names the
// account to act as; empty means Username itself.
type Credentials struct {
	Username   string
	Password   string
	SwitchUser string
}

func (c Credentials) identity() connector.Identity {
	return connector.Identity(strings.TrimSpace(c.Username))
}

func (c Credentials) actingAs() connector.Identity {
	return connector.Identity(strings.TrimSpace(c.SwitchUser))
}

// String never includes the password.
func (c Credentials) String() string {
	identity := c.identity()
	actingAs := c.actingAs()
	if actingAs == "" || actingAs == identity {
		return string(identity)
	}
	return string(identity) + " as " + string(actingAs)
}
