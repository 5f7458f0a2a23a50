package handler

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the console's HTTP and
// WebSocket handlers.
var ProviderSet = wire.NewSet(NewResourceHandler, NewWatchHandler)
