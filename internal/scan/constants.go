package scan

// Strategy priorities (higher = more important).
const (
	PriorityWifi      = 100
	PriorityBluetooth = 90
	PriorityCamera    = 80
	PrioritySimulated = 10
)
