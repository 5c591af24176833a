package meta

import "sync"

//nolint:gochecknoglobals // set once at startup, read everywhere
var (
	serviceName    string
	serviceVersion string
	once           sync.Once
)

// SetServiceInfo sets the global service name and version.
// Only the first call has an effect.
func SetServiceInfo(name, version string) {
	once.Do(func() {
		serviceName = name
		serviceVersion = version
	})
}

// GetServiceName returns the global service name.
func GetServiceName() string {
	return serviceName
}

// GetServiceVersion returns the global service version.
func GetServiceVersion() string {
	return serviceVersion
}
