// Package bootstrap assembles the server from fx modules: configuration,
// logging, storage, Redis, messaging, services and the HTTP layer.
package bootstrap

import "go.uber.org/fx"

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	StorageModule,
	RedisModule,
	MessagingModule,
	ServiceModule,
	HTTPModule,
)
