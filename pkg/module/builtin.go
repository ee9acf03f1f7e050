package module

// Builtin returns descriptors available without any configuration.
func Builtin() []Descriptor {
	return []Descriptor{
		New("MyNFT", "MyNFT", "mynft"),
		New("NodeHealthMonitorModule", "NodeHealthMonitor", "nodeHealthMonitor"),
		New("simple", "simple", "simple"),
	}
}
