package providers

import "github.com/km-arc/h3ravel/framework/foundation"

// Catalog lists the framework providers in discovery order.
//
//	app.Discover(providers.Catalog(), "schedule") // everything but the scheduler
func Catalog() foundation.Catalog {
	return foundation.Catalog{
		{Name: "config", New: func() foundation.ServiceProvider { return &ConfigServiceProvider{} }},
		{Name: "log", New: func() foundation.ServiceProvider { return &LogServiceProvider{} }},
		{Name: "routing", New: func() foundation.ServiceProvider { return &RoutingServiceProvider{} }},
		{Name: "http", New: func() foundation.ServiceProvider { return &HttpServiceProvider{} }},
		{Name: "view", New: func() foundation.ServiceProvider { return &ViewServiceProvider{} }},
		{Name: "metrics", New: func() foundation.ServiceProvider { return &MetricsServiceProvider{} }},
		{Name: "database", New: func() foundation.ServiceProvider { return &DatabaseServiceProvider{} }},
		{Name: "cache", New: func() foundation.ServiceProvider { return &CacheServiceProvider{} }},
		{Name: "hash", New: func() foundation.ServiceProvider { return &HashServiceProvider{} }},
		{Name: "schedule", New: func() foundation.ServiceProvider { return &ScheduleServiceProvider{} }},
		{Name: "console", New: func() foundation.ServiceProvider { return &ConsoleServiceProvider{} }},
	}
}
