package addrcache

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/plug-remote/internal/datadog"
	"github.com/thatsimonsguy/plug-remote/internal/model"
)

// Store is the non-volatile key/value layer. Set stages a value; nothing is
// durable until Commit.
type Store interface {
	Get(key string) (uint32, bool, error)
	Set(key string, value uint32)
	Commit() error
}

type Resolver interface {
	Resolve(mac model.HardwareAddr) model.IPv4
}

// Cache keeps the last known address of both plugs across power cycles.
type Cache struct {
	store    Store
	resolver Resolver
	plugs    [2]model.Plug
	addrs    [2]model.IPv4
	dirty    bool
}

func New(store Store, resolver Resolver, plugA, plugB model.Plug) *Cache {
	return &Cache{
		store:    store,
		resolver: resolver,
		plugs:    [2]model.Plug{plugA, plugB},
		addrs:    [2]model.IPv4{model.Unresolved, model.Unresolved},
	}
}

// Load reads both slots, resolving any slot the store does not have. Fresh
// results are only staged; CommitIfDirty makes them durable.
func (c *Cache) Load() (model.IPv4, model.IPv4) {
	for i, plug := range c.plugs {
		value, found, err := c.store.Get(string(plug.Slot))
		if err != nil {
			log.Warn().Err(err).Str("slot", plug.Slot.Label()).Msg("Failed to read cached address, resolving instead")
			found = false
		}
		// a stored sentinel means the last resolve failed; try again
		if found && model.IPv4(value).Resolved() {
			c.addrs[i] = model.IPv4(value)
			log.Debug().Str("slot", plug.Slot.Label()).Str("ip", c.addrs[i].String()).Msg("Using cached address")
			datadog.Incr("cache.hit", "slot:"+string(plug.Slot))
			continue
		}

		datadog.Incr("cache.miss", "slot:"+string(plug.Slot))
		c.addrs[i] = c.resolver.Resolve(plug.MAC)
		c.store.Set(string(plug.Slot), uint32(c.addrs[i]))
		c.dirty = true
	}
	return c.addrs[0], c.addrs[1]
}

// CommitIfDirty writes both slots in one commit when Load had to resolve.
func (c *Cache) CommitIfDirty() {
	if !c.dirty {
		return
	}
	c.commit()
}

// Store overwrites both slots and commits, whatever was there before.
func (c *Cache) Store(a, b model.IPv4) {
	c.addrs = [2]model.IPv4{a, b}
	c.commit()
}

// Rediscover resolves both plugs again and stores the results.
func (c *Cache) Rediscover() (model.IPv4, model.IPv4) {
	log.Info().Msg("Rediscovering both plugs")
	a := c.resolver.Resolve(c.plugs[0].MAC)
	b := c.resolver.Resolve(c.plugs[1].MAC)
	c.Store(a, b)
	return a, b
}

// Address returns the in-memory address for a slot.
func (c *Cache) Address(slot model.Slot) model.IPv4 {
	for i, plug := range c.plugs {
		if plug.Slot == slot {
			return c.addrs[i]
		}
	}
	return model.Unresolved
}

func (c *Cache) commit() {
	for i, plug := range c.plugs {
		c.store.Set(string(plug.Slot), uint32(c.addrs[i]))
	}
	if err := c.store.Commit(); err != nil {
		log.Warn().Err(err).Msg("Failed to persist plug addresses")
		datadog.Incr("cache.commit_failed")
		return
	}
	c.dirty = false
	log.Info().
		Str("plug_a", c.addrs[0].String()).
		Str("plug_b", c.addrs[1].String()).
		Msg("Persisted plug addresses")
}
