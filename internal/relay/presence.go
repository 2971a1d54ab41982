package relay

import "github.com/maypok86/otter/v2"

// Presence is the online state recorded for a user name.
type Presence struct {
	Online bool `json:"online"`
}

// PresenceRegistry records which user names are online. Entries are created
// or overwritten on every open and close and are never removed, so the
// registry grows with the number of distinct names seen by the process.
type PresenceRegistry struct {
	users *otter.Cache[string, Presence]
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		users: otter.Must(&otter.Options[string, Presence]{
			InitialCapacity: 64,
		}),
	}
}

// MarkOnline records userName as online.
func (p *PresenceRegistry) MarkOnline(userName string) {
	p.users.Set(userName, Presence{Online: true})
}

// MarkOffline records userName as offline, creating the entry if the name
// was never seen online.
func (p *PresenceRegistry) MarkOffline(userName string) {
	p.users.Set(userName, Presence{Online: false})
}

// OnlineCount walks every known name and counts the online ones.
func (p *PresenceRegistry) OnlineCount() int {
	count := 0
	for _, presence := range p.users.All() {
		if presence.Online {
			count++
		}
	}
	return count
}

// Status returns the recorded presence for userName and whether it was ever seen.
func (p *PresenceRegistry) Status(userName string) (Presence, bool) {
	return p.users.GetIfPresent(userName)
}

// Known returns the number of names ever recorded.
func (p *PresenceRegistry) Known() int {
	count := 0
	for range p.users.All() {
		count++
	}
	return count
}
