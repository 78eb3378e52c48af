package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"driverpro/internal/service"
)

// Cache TTL constants
const (
	// FleetCacheTTL keeps driver/vehicle assignments for a short window.
	// Assignments change rarely but a stale hit must not survive a
	// dispatcher reassignment for long.
	FleetCacheTTL = 60 * time.Second

	// CardCacheTTL keeps vehicle->card lookups briefly.
	CardCacheTTL = 60 * time.Second
)

// Key prefixes
const (
	partnerCachePrefix = "cache:fleet:partner:"
	vehicleCachePrefix = "cache:fleet:vehicle:"
	holderCachePrefix  = "cache:fleet:holder:"
	cardCachePrefix    = "cache:fleet:card:"
)

// CachedFleetDirectory wraps a FleetDirectory with a Redis read-through
// cache. Misses in the backing directory are cached too, as empty strings,
// so unknown drivers do not hammer the fleet tables.
type CachedFleetDirectory struct {
	client *redis.Client
	next   service.FleetDirectory
}

// NewCachedFleetDirectory creates a caching decorator over next.
func NewCachedFleetDirectory(client *redis.Client, next service.FleetDirectory) *CachedFleetDirectory {
	return &CachedFleetDirectory{client: client, next: next}
}

// ResolveDriverPartner returns the partner id linked to a driver user.
func (d *CachedFleetDirectory) ResolveDriverPartner(ctx context.Context, userID string) (string, error) {
	return d.lookup(ctx, partnerCachePrefix+userID, func() (string, error) {
		return d.next.ResolveDriverPartner(ctx, userID)
	})
}

// FindAssignedVehicle returns the active vehicle assigned to a partner.
func (d *CachedFleetDirectory) FindAssignedVehicle(ctx context.Context, partnerID string) (string, error) {
	return d.lookup(ctx, vehicleCachePrefix+partnerID, func() (string, error) {
		return d.next.FindAssignedVehicle(ctx, partnerID)
	})
}

// VehicleDriver returns the partner id a vehicle is assigned to.
func (d *CachedFleetDirectory) VehicleDriver(ctx context.Context, vehicleID string) (string, error) {
	return d.lookup(ctx, holderCachePrefix+vehicleID, func() (string, error) {
		return d.next.VehicleDriver(ctx, vehicleID)
	})
}

func (d *CachedFleetDirectory) lookup(ctx context.Context, key string, load func() (string, error)) (string, error) {
	value, err := d.client.Get(ctx, key).Result()
	if err == nil {
		return value, nil
	}
	if err != redis.Nil {
		// Redis down degrades to direct lookups.
		return load()
	}

	value, err = load()
	if err != nil {
		return "", err
	}

	d.client.Set(ctx, key, value, FleetCacheTTL)
	return value, nil
}

// CachedCardDirectory wraps a CardDirectory with the same read-through cache.
type CachedCardDirectory struct {
	client *redis.Client
	next   service.CardDirectory
}

// NewCachedCardDirectory creates a caching decorator over next.
func NewCachedCardDirectory(client *redis.Client, next service.CardDirectory) *CachedCardDirectory {
	return &CachedCardDirectory{client: client, next: next}
}

// FindActiveCardForVehicle returns the id of the vehicle's active card.
func (d *CachedCardDirectory) FindActiveCardForVehicle(ctx context.Context, vehicleID string) (string, error) {
	key := cardCachePrefix + vehicleID

	value, err := d.client.Get(ctx, key).Result()
	if err == nil {
		return value, nil
	}
	if err != redis.Nil {
		return d.next.FindActiveCardForVehicle(ctx, vehicleID)
	}

	value, err = d.next.FindActiveCardForVehicle(ctx, vehicleID)
	if err != nil {
		return "", err
	}

	d.client.Set(ctx, key, value, CardCacheTTL)
	return value, nil
}

// InvalidateVehicleCard drops the cached card lookup for a vehicle. Called
// after a card assignment changes.
func (d *CachedCardDirectory) InvalidateVehicleCard(ctx context.Context, vehicleID string) error {
	return d.client.Del(ctx, cardCachePrefix+vehicleID).Err()
}
