package topology

import (
	"context"
	"strings"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/messagestore"
)

// Mode controls how unresolved bindings are handled.
type Mode int

const (
	// ModeStrict fails resolution when any binding cannot be resolved.
	ModeStrict Mode = iota
	// ModeLenient skips unresolved bindings and reports them.
	ModeLenient
)

func (m Mode) String() string {
	if m == ModeLenient {
		return "lenient"
	}
	return "strict"
}

// ParseMode accepts "strict" or "lenient"; anything else is strict.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "lenient") {
		return ModeLenient
	}
	return ModeStrict
}

// Unresolved records why a binding was dropped.
type Unresolved struct {
	Binding Binding
	Reason  string
}

// Resolution holds the input channels resolved for each AIM.
type Resolution struct {
	Inputs  map[string][]aif.Channel
	Skipped []Unresolved
}

// InputsFor returns the channels bound to name, nil when none.
func (r Resolution) InputsFor(name string) []aif.Channel {
	return append([]aif.Channel(nil), r.Inputs[name]...)
}

type Resolver struct {
	mode   Mode
	logger aif.Logger
}

type Option func(*Resolver)

func WithMode(mode Mode) Option {
	return func(r *Resolver) {
		r.mode = mode
	}
}

func WithLogger(logger aif.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{mode: ModeStrict, logger: aif.NewFmtLogger(nil)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Resolver) Mode() Mode {
	if r == nil {
		return ModeStrict
	}
	return r.mode
}

// Resolve appends, for every binding, the channel of its port to the input
// list of its AIM. Bindings naming an AIM missing from SubAIMs or a port
// missing from channels are unresolved. The result does not depend on the
// order AIMs appear in.
func (r *Resolver) Resolve(graph Graph, channels messagestore.ChannelMap) (Resolution, error) {
	if r == nil {
		r = NewResolver()
	}
	res := Resolution{Inputs: make(map[string][]aif.Channel, len(graph.SubAIMs))}

	for _, b := range graph.Bindings {
		if !graph.HasAIM(b.AIMName) {
			res.Skipped = append(res.Skipped, Unresolved{Binding: b, Reason: "aim not in SubAIMs"})
			continue
		}
		ch, ok := channels.Lookup(b.PortName)
		if !ok {
			res.Skipped = append(res.Skipped, Unresolved{Binding: b, Reason: "port not in channel map"})
			continue
		}
		if containsChannel(res.Inputs[b.AIMName], ch) {
			continue
		}
		res.Inputs[b.AIMName] = append(res.Inputs[b.AIMName], ch)
		r.logger.Debug("bound %s to channel %d", b, ch)
	}

	if len(res.Skipped) == 0 {
		return res, nil
	}

	unresolved := make([]string, 0, len(res.Skipped))
	for _, u := range res.Skipped {
		unresolved = append(unresolved, u.Binding.String()+" ("+u.Reason+")")
	}
	if r.mode == ModeStrict {
		return res, aif.CloneError(aif.ErrUnresolvedBinding, "", nil, map[string]any{
			"workflow":   graph.Title,
			"unresolved": unresolved,
		})
	}
	for _, u := range unresolved {
		r.logger.Warn("skipping unresolved binding %s", u)
	}
	return res, nil
}

func containsChannel(list []aif.Channel, ch aif.Channel) bool {
	for _, c := range list {
		if c == ch {
			return true
		}
	}
	return false
}

// ChannelNames picks the logical channel names of a workflow: the declared
// ones when present, otherwise the ports referenced by the topology.
func ChannelNames(declared []string, graph Graph) []string {
	if len(declared) > 0 {
		return append([]string(nil), declared...)
	}
	return graph.PortNames()
}

// BuildChannelMap allocates one channel per distinct name on store.
func BuildChannelMap(ctx context.Context, store *messagestore.Store, names []string) (messagestore.ChannelMap, error) {
	if store == nil {
		return nil, aif.ErrNilStore
	}
	out := make(messagestore.ChannelMap, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := out[name]; ok {
			continue
		}
		ch, err := store.AllocateChannelContext(ctx)
		if err != nil {
			return nil, err
		}
		out[name] = ch
	}
	return out, nil
}
