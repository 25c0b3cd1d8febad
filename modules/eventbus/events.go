package eventbus

// Well-known event types published by the kernel itself. Types follow the
// domain:action convention that plugin modules use on the bus.
const (
	// Plugin module lifecycle
	EventTypeModuleLoaded    = "mfe:loaded"
	EventTypeModuleMounted   = "mfe:mounted"
	EventTypeModuleUnmounted = "mfe:unmounted"
	EventTypeModuleRejected  = "mfe:rejected"
	EventTypeModuleError     = "mfe:error"

	// Manifest files changing on disk
	EventTypeManifestChanged = "manifest:changed"

	// Modal stack changes
	EventTypeModalChanged = "modal:changed"
)
