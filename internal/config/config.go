package config

// Settings is the viper-mapped agent configuration.
type Settings struct {
	DBPath            string   `mapstructure:"db_path"`            // database location, defaults to the OS data dir
	UploadParallelism int      `mapstructure:"upload_parallelism"` // max concurrent upload queues (default 2, -1 = unbounded)
	NotifyURLs        []string `mapstructure:"notify_urls"`        // shoutrrr URLs for failure alerts
}

// Defaults applied when the config file leaves fields unset.
func (s *Settings) ApplyDefaults() {
	if s.UploadParallelism == 0 {
		s.UploadParallelism = 2
	}
}
