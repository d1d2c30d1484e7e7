// Package catalog is the static table of AIM implementations and workflow
// definitions a runtime can instantiate by name.
package catalog

import (
	"sort"
	"strings"
	"sync"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/goliatone/go-errors"
)

// Env is what a factory receives when its AIM is instantiated inside a
// workflow.
type Env struct {
	WorkflowID int
	RunID      string
	Name       string
	Store      *messagestore.Store
	Channels   messagestore.ChannelMap
	Inputs     []aif.Channel
	Logger     aif.Logger
}

// Output resolves a logical channel name of the workflow.
func (e Env) Output(name string) (aif.Channel, bool) {
	return e.Channels.Lookup(name)
}

// Factory builds the module of one AIM.
type Factory func(env Env) (aim.Module, error)

// Entry describes one AIM implementation.
type Entry struct {
	Name        string
	Description string
	New         Factory
	// Enabled is consulted after the AIM is created; false vetoes it and
	// the controller reports CREATION_SKIPPED. Nil means enabled.
	Enabled func() bool
}

func (e Entry) enabled() bool {
	return e.Enabled == nil || e.Enabled()
}

// IsEnabled reports whether the entry allows creation.
func (e Entry) IsEnabled() bool {
	return e.enabled()
}

// WorkflowDefinition names a workflow and the logical channels its AIMs
// exchange messages on. Empty Channels derives them from the topology.
type WorkflowDefinition struct {
	Name        string
	Channels    []string
	MessageSize int
}

type Catalog struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	order       []string
	workflows   map[string]WorkflowDefinition
	initialized bool
}

func New() *Catalog {
	return &Catalog{
		entries:   make(map[string]Entry),
		workflows: make(map[string]WorkflowDefinition),
	}
}

// Register adds an AIM entry. Names are unique.
func (c *Catalog) Register(entry Entry) error {
	if c == nil {
		return errors.New("catalog cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_CATALOG")
	}
	entry.Name = strings.TrimSpace(entry.Name)
	if entry.Name == "" {
		return aif.CloneError(aif.ErrInvalidIdentity, "catalog entry name is required", nil, nil)
	}
	if entry.New == nil {
		return errors.New("catalog entry requires a factory", errors.CategoryBadInput).
			WithTextCode("NIL_FACTORY").
			WithMetadata(map[string]any{"aim": entry.Name})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return aif.CloneError(aif.ErrCatalogSealed, "cannot register entries after catalog has been initialized", nil, map[string]any{
			"aim": entry.Name,
		})
	}
	if _, exists := c.entries[entry.Name]; exists {
		return aif.CloneError(aif.ErrDuplicateEntry, "", nil, map[string]any{"aim": entry.Name})
	}
	c.entries[entry.Name] = entry
	c.order = append(c.order, entry.Name)
	return nil
}

// RegisterWorkflow adds a workflow definition.
func (c *Catalog) RegisterWorkflow(def WorkflowDefinition) error {
	if c == nil {
		return errors.New("catalog cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_CATALOG")
	}
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return aif.CloneError(aif.ErrInvalidIdentity, "workflow name is required", nil, nil)
	}
	seen := make(map[string]bool, len(def.Channels))
	for _, ch := range def.Channels {
		if strings.TrimSpace(ch) == "" || seen[ch] {
			return aif.CloneError(aif.ErrInvalidConfig, "workflow channels must be unique and non-empty", nil, map[string]any{
				"workflow": def.Name,
				"channel":  ch,
			})
		}
		seen[ch] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return aif.CloneError(aif.ErrCatalogSealed, "cannot register workflows after catalog has been initialized", nil, map[string]any{
			"workflow": def.Name,
		})
	}
	if _, exists := c.workflows[def.Name]; exists {
		return aif.CloneError(aif.ErrDuplicateEntry, "", nil, map[string]any{"workflow": def.Name})
	}
	def.Channels = append([]string(nil), def.Channels...)
	c.workflows[def.Name] = def
	return nil
}

// Initialize seals the catalog. Further registration fails.
func (c *Catalog) Initialize() error {
	if c == nil {
		return errors.New("catalog cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_CATALOG")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return aif.CloneError(aif.ErrCatalogSealed, "catalog already initialized", nil, nil)
	}
	c.initialized = true
	return nil
}

func (c *Catalog) Initialized() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

func (c *Catalog) Lookup(name string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[strings.TrimSpace(name)]
	return entry, ok
}

func (c *Catalog) Workflow(name string) (WorkflowDefinition, bool) {
	if c == nil {
		return WorkflowDefinition{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.workflows[strings.TrimSpace(name)]
	if ok {
		def.Channels = append([]string(nil), def.Channels...)
	}
	return def, ok
}

// Names lists AIM entries in registration order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Workflows lists workflow definition names sorted.
func (c *Catalog) Workflows() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
