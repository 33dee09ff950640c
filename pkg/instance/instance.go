package instance

import "github.com/angelmondragon/billing-bridge/pkg/env"

// GetID identifies this process in logs: the platform's dyno or revision name,
// else the hostname, else "local".
func GetID() string {
	return env.First("local", "DYNO", "K_REVISION", "HOSTNAME")
}
