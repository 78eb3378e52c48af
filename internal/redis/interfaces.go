package redis

import "driverpro/internal/service"

// Ensure concrete types implement the service-layer collaborator interfaces.
var (
	_ service.TripLocker           = (*LockStore)(nil)
	_ service.EventSink            = (*EventPublisher)(nil)
	_ service.FleetDirectory       = (*CachedFleetDirectory)(nil)
	_ service.CardDirectory        = (*CachedCardDirectory)(nil)
	_ service.CardCacheInvalidator = (*CachedCardDirectory)(nil)
)
