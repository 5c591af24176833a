package cfgloader

// Options holds configuration options for MustLoad and Load.
type Options struct {
	// Silent disables printing the loaded config to stdout.
	Silent bool
	// ConfigDir is the directory holding ${ENVIRONMENT}.yaml files.
	ConfigDir string
}

// Option is a functional option for configuring MustLoad behavior.
type Option func(*Options)

// WithSilent disables config logging to stdout.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithConfigDir reads config files from dir instead of ./config.
func WithConfigDir(dir string) Option {
	return func(o *Options) {
		o.ConfigDir = dir
	}
}
