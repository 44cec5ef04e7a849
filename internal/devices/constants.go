package devices

// Device status constants.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Sidebar section names.
type Section string

const (
	SectionFavorites Section = "favorites"
	SectionOnline    Section = "online"
	SectionOffline   Section = "offline"
)

// Device source constants.
const (
	SourceManual    = "manual"
	SourceWifi      = "wifi"
	SourceBluetooth = "bluetooth"
	SourceCamera    = "camera"
)

// Device type constants.
const (
	DeviceTypeWifi      DeviceType = "wifi"
	DeviceTypeBluetooth DeviceType = "bluetooth"
	DeviceTypeCamera    DeviceType = "camera"
	DeviceTypePhone     DeviceType = "phone"
	DeviceTypePrinter   DeviceType = "printer"
	DeviceTypeSensor    DeviceType = "sensor"
	DeviceTypeComputer  DeviceType = "computer"
	DeviceTypeRouter    DeviceType = "router"
	DeviceTypeOther     DeviceType = "other"
)

// Registry event types.
const (
	EventAdded   = "device_added"
	EventUpdated = "device_updated"
	EventDeleted = "device_deleted"
)
