package ardaku

// Portal IDs are the stable wire values a guest uses in a Connect message to
// request a capability.
const (
	PortalLog uint32 = iota
	PortalPrompt
	PortalAccount
	PortalUser
	PortalSystem
	PortalHost
	PortalHardware
	PortalPlatform
	PortalSpawn
	PortalSpawnBlocking
	PortalChannel
	PortalAdmin

	portalCount // IDs >= this are invalid.
)

var portalNames = [portalCount]string{
	PortalLog:           "log",
	PortalPrompt:        "prompt",
	PortalAccount:       "account",
	PortalUser:          "user",
	PortalSystem:        "system",
	PortalHost:          "host",
	PortalHardware:      "hardware",
	PortalPlatform:      "platform",
	PortalSpawn:         "spawn",
	PortalSpawnBlocking: "spawn_blocking",
	PortalChannel:       "channel",
	PortalAdmin:         "admin",
}

// portalName looks up the display name for a portal ID. It never traps;
// callers decide what to do with an unknown ID.
func portalName(id uint32) (name string, ok bool) {
	if id >= portalCount {
		return "", false
	}
	return portalNames[id], true
}
