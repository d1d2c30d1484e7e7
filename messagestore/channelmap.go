package messagestore

import (
	"sort"

	aif "github.com/goliatone/go-aif"
)

// ChannelMap maps logical channel names of a workflow to allocated channels.
type ChannelMap map[string]aif.Channel

func (m ChannelMap) Lookup(name string) (aif.Channel, bool) {
	ch, ok := m[name]
	return ch, ok && ch.Valid()
}

// Names returns the logical names ordered by channel id.
func (m ChannelMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if m[names[i]] == m[names[j]] {
			return names[i] < names[j]
		}
		return m[names[i]] < m[names[j]]
	})
	return names
}
